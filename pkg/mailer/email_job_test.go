package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailJob_Valid(t *testing.T) {
	assert.True(t, EmailJob{To: "a@x.com", Template: "welcome"}.Valid())
	assert.True(t, EmailJob{To: "a@x.com", Subject: "s", Text: "t"}.Valid())
	assert.False(t, EmailJob{To: "a@x.com", Subject: "s"}.Valid())
	assert.False(t, EmailJob{Template: "welcome"}.Valid())
}
