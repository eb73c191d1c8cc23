package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memalihaider/ai-business-developer-sub004/models"
)

func TestRenderTemplateStandardFields(t *testing.T) {
	contact := &models.Contact{
		Email:     "ada@acme.test",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Company:   "Acme",
	}

	out := RenderTemplate("{{firstName}} at {{company}}", contact, nil)
	assert.Equal(t, "Ada at Acme", out)

	out = RenderTemplate("Dear {{fullName}} <{{email}}>", contact, nil)
	assert.Equal(t, "Dear Ada Lovelace <ada@acme.test>", out)
}

func TestRenderTemplateFullNameTrimming(t *testing.T) {
	contact := &models.Contact{FirstName: "Ada"}
	assert.Equal(t, "Ada", RenderTemplate("{{fullName}}", contact, nil))

	contact = &models.Contact{LastName: "Lovelace"}
	assert.Equal(t, "Lovelace", RenderTemplate("{{fullName}}", contact, nil))

	contact = &models.Contact{}
	assert.Equal(t, "", RenderTemplate("{{fullName}}", contact, nil))
}

func TestRenderTemplateMissingFieldsAreEmpty(t *testing.T) {
	contact := &models.Contact{FirstName: "Ada"}
	assert.Equal(t, "Ada ", RenderTemplate("{{firstName}} {{company}}", contact, nil))
}

func TestRenderTemplateUnknownPlaceholderPassesThrough(t *testing.T) {
	contact := &models.Contact{}
	assert.Equal(t, "{{missingKey}}", RenderTemplate("{{missingKey}}", contact, nil))
}

func TestRenderTemplateCustomFields(t *testing.T) {
	contact := &models.Contact{FirstName: "Ada"}
	fields := map[string]string{"plan": "enterprise", "region": "EU"}

	out := RenderTemplate("{{firstName}}: {{plan}} ({{region}})", contact, fields)
	assert.Equal(t, "Ada: enterprise (EU)", out)
}

func TestRenderTemplateNilContact(t *testing.T) {
	assert.Equal(t, "{{firstName}}", RenderTemplate("{{firstName}}", nil, nil))
}
