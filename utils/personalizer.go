package utils

import (
	"strings"

	"github.com/memalihaider/ai-business-developer-sub004/models"
)

// RenderTemplate substitutes {{placeholder}} variables in a sequence step
// template with the contact's fields. Supported standard placeholders are
// firstName, lastName, fullName, email and company; every entry of the
// custom-field map is substituted as {{name}} as well. Placeholders with no
// matching field are left verbatim so a typo shows up in the output instead
// of silently disappearing.
func RenderTemplate(template string, contact *models.Contact, customFields map[string]string) string {
	if template == "" || contact == nil {
		return template
	}

	fullName := strings.TrimSpace(strings.TrimSpace(contact.FirstName) + " " + strings.TrimSpace(contact.LastName))

	pairs := []string{
		"{{firstName}}", contact.FirstName,
		"{{lastName}}", contact.LastName,
		"{{fullName}}", fullName,
		"{{email}}", contact.Email,
		"{{company}}", contact.Company,
	}
	for name, value := range customFields {
		pairs = append(pairs, "{{"+name+"}}", value)
	}

	return strings.NewReplacer(pairs...).Replace(template)
}
