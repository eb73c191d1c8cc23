package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInjectTracking(t *testing.T) {
	out := InjectTracking("<p>Hi</p>", "https://app.test", "msg-1")
	assert.Contains(t, out, "<p>Hi</p>")
	assert.Contains(t, out, `src="https://app.test/track/open/msg-1"`)
}

func TestAppendUnsubscribeFooter(t *testing.T) {
	out := AppendUnsubscribeFooter("<p>Hi</p>", "https://app.test", "tok-1")
	assert.Contains(t, out, `href="https://app.test/unsubscribe/tok-1"`)

	// No token, no footer
	assert.Equal(t, "<p>Hi</p>", AppendUnsubscribeFooter("<p>Hi</p>", "https://app.test", ""))
}
