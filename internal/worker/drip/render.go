package dripworker

import (
	"strings"

	"github.com/hyredlabs/outreach-console/internal/contacts"
)

// Render substitutes contact placeholders into template text. Unknown
// placeholders are left untouched.
func Render(text string, contact *contacts.Contact) string {
	if contact == nil {
		return text
	}
	r := strings.NewReplacer(
		"{{first_name}}", contact.FirstName,
		"{{last_name}}", contact.LastName,
		"{{email}}", contact.Email,
	)
	return r.Replace(text)
}
