package dripworker

import (
	"testing"

	"github.com/hyredlabs/outreach-console/internal/contacts"
)

func TestRender(t *testing.T) {
	contact := &contacts.Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}

	cases := []struct {
		in   string
		want string
	}{
		{"Hi {{first_name}}!", "Hi Ada!"},
		{"{{first_name}} {{last_name}}", "Ada Lovelace"},
		{"Reach me at {{email}}", "Reach me at ada@example.com"},
		{"{{unknown_tag}} stays", "{{unknown_tag}} stays"},
		{"no placeholders", "no placeholders"},
	}
	for _, tc := range cases {
		if got := Render(tc.in, contact); got != tc.want {
			t.Errorf("Render(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderMissingFields(t *testing.T) {
	contact := &contacts.Contact{Email: "x@example.com"}
	if got := Render("Hi {{first_name}}!", contact); got != "Hi !" {
		t.Errorf("expected empty substitution, got %q", got)
	}
	if got := Render("Hi {{first_name}}", nil); got != "Hi {{first_name}}" {
		t.Errorf("nil contact must leave text untouched, got %q", got)
	}
}
