package leads

import (
	"strconv"
	"strings"

	"github.com/hyredlabs/outreach-console/internal/observability/metrics"
	"github.com/hyredlabs/outreach-console/pkg/logging"
)

// DefaultMaxRecords caps how many raw records a single batch will normalize.
const DefaultMaxRecords = 100

// Known key aliases per field, in priority order. These were collected from
// observed response variants of the campaign platform.
var (
	emailAliases = []string{
		"email", "emailAddress", "email_address", "mail", "primary_email",
		"contact_email", "user_email", "email_primary", "person_email",
		"work_email", "business_email", "reply_to",
	}
	firstNameAliases = []string{
		"first_name", "firstName", "fname", "given_name", "first",
		"name_first", "forename", "first name",
	}
	lastNameAliases = []string{
		"last_name", "lastName", "lname", "surname", "family_name", "last",
		"name_last", "last name",
	}
	fullNameAliases = []string{
		"name", "full_name", "display_name", "contact_name", "person_name",
		"fullname", "displayname", "lead_name",
	}
	companyAliases = []string{
		"company", "company_name", "companyName", "organization",
		"organisation", "employer", "firm", "business", "workplace", "work",
		"business_name", "company name", "org", "corporation", "enterprise",
		"establishment",
	}
	titleAliases = []string{"title", "job_title", "position", "role", "occupation"}

	// Sub-objects worth descending into when the top level has no match.
	nestedContainers = []string{"contact", "person", "profile", "user", "details", "info", "lead"}

	// Key substrings that mark a field as company-ish for the last-resort scan.
	companyIndicators = []string{"company", "org", "business", "employer", "workplace"}
)

type fieldSpec struct {
	aliases []string

	// emailPattern enables the "any value containing @ and ." last resort.
	emailPattern bool
	// companyScan enables the organization-indicator key scan last resort.
	companyScan bool
}

// A strategy tries one extraction tactic and reports whether it matched.
// Strategies run in order; the first match wins.
type strategy func(raw RawRecord, spec fieldSpec) (string, bool)

var pipeline = []strategy{directAlias, nestedAlias, fuzzyKeyMatch, lastResort}

func extract(raw RawRecord, spec fieldSpec) string {
	for _, s := range pipeline {
		if v, ok := s(raw, spec); ok {
			return v
		}
	}
	return ""
}

// directAlias matches a top-level key exactly against the alias list.
func directAlias(raw RawRecord, spec fieldSpec) (string, bool) {
	for _, alias := range spec.aliases {
		if v, ok := stringValue(raw[alias]); ok {
			return v, true
		}
	}
	return "", false
}

// nestedAlias descends into the known container sub-objects.
func nestedAlias(raw RawRecord, spec fieldSpec) (string, bool) {
	for _, container := range nestedContainers {
		sub, ok := raw[container].(map[string]any)
		if !ok {
			continue
		}
		for _, alias := range spec.aliases {
			if v, ok := stringValue(sub[alias]); ok {
				return v, true
			}
		}
	}
	return "", false
}

// fuzzyKeyMatch accepts any top-level string value whose key contains an alias
// as a substring, case-insensitively.
func fuzzyKeyMatch(raw RawRecord, spec fieldSpec) (string, bool) {
	for key, value := range raw {
		v, ok := stringValue(value)
		if !ok {
			continue
		}
		lower := strings.ToLower(key)
		for _, alias := range spec.aliases {
			if strings.Contains(lower, strings.ToLower(alias)) {
				return v, true
			}
		}
	}
	return "", false
}

// lastResort applies the field-specific heuristics: email-shaped values for
// email, organization-indicator key names for company.
func lastResort(raw RawRecord, spec fieldSpec) (string, bool) {
	if spec.emailPattern {
		for _, value := range raw {
			if v, ok := stringValue(value); ok && looksLikeEmail(v) {
				return v, true
			}
		}
		// Nested objects sometimes hide the address under an unknown key.
		for _, value := range raw {
			sub, ok := value.(map[string]any)
			if !ok {
				continue
			}
			for _, nested := range sub {
				if v, ok := stringValue(nested); ok && looksLikeEmail(v) {
					return v, true
				}
			}
		}
	}
	if spec.companyScan {
		for key, value := range raw {
			v, ok := stringValue(value)
			if !ok {
				continue
			}
			lower := strings.ToLower(key)
			for _, indicator := range companyIndicators {
				if strings.Contains(lower, indicator) {
					return v, true
				}
			}
		}
	}
	return "", false
}

func looksLikeEmail(v string) bool {
	return strings.Contains(v, "@") && strings.Contains(v, ".")
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// anyToID renders an id value of whatever JSON type the platform used.
func anyToID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}

// Normalize flattens one raw record into a NormalizedLead. It never fails:
// fields that cannot be recovered are left empty. idx seeds the fallback id.
func Normalize(raw RawRecord, idx int) NormalizedLead {
	lead := NormalizedLead{
		ID:     anyToID(raw["id"]),
		Status: "UNKNOWN",
	}
	if lead.ID == "" {
		lead.ID = strconv.Itoa(idx)
	}
	if s, ok := stringValue(raw["status"]); ok {
		lead.Status = s
	}

	// Shortcut: responses that nest the contact under "lead" carry the
	// canonical fields there; prefer that path over the general scan.
	if sub, ok := raw["lead"].(map[string]any); ok {
		if email, ok := stringValue(sub["email"]); ok {
			lead.Email = email
			lead.FirstName, _ = stringValue(sub["first_name"])
			lead.LastName, _ = stringValue(sub["last_name"])
			if company, ok := stringValue(sub["company"]); ok {
				lead.Company = company
			} else {
				lead.Company, _ = stringValue(sub["company_name"])
			}
		}
	}

	if lead.Email == "" {
		lead.Email = extract(raw, fieldSpec{aliases: emailAliases, emailPattern: true})
	}
	if lead.FirstName == "" {
		lead.FirstName = extract(raw, fieldSpec{aliases: firstNameAliases})
	}
	if lead.LastName == "" {
		lead.LastName = extract(raw, fieldSpec{aliases: lastNameAliases})
	}
	if lead.FirstName == "" && lead.LastName == "" {
		if full := extract(raw, fieldSpec{aliases: fullNameAliases}); full != "" {
			lead.FirstName, lead.LastName = splitFullName(full)
		}
	}
	if lead.Company == "" {
		lead.Company = extract(raw, fieldSpec{aliases: companyAliases, companyScan: true})
	}
	lead.Title = extract(raw, fieldSpec{aliases: titleAliases})

	return lead
}

func splitFullName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}
	return first, last
}

// Normalizer batches Normalize calls with a record cap and diagnostics.
type Normalizer struct {
	// MaxRecords caps how many records a batch processes; zero means
	// DefaultMaxRecords.
	MaxRecords int
	Logger     *logging.Logger
	Metrics    *metrics.OutreachMetrics
}

// NormalizeBatch flattens up to MaxRecords raw records.
func (n *Normalizer) NormalizeBatch(records []RawRecord) []NormalizedLead {
	maxRecords := n.MaxRecords
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if len(records) > maxRecords {
		if n.Logger != nil {
			n.Logger.Warn("lead batch truncated", "total", len(records), "cap", maxRecords)
		}
		records = records[:maxRecords]
	}

	out := make([]NormalizedLead, 0, len(records))
	missingEmail := 0
	for idx, raw := range records {
		lead := Normalize(raw, idx)
		if lead.Email == "" {
			missingEmail++
		}
		out = append(out, lead)
	}
	if missingEmail > 0 && n.Logger != nil {
		n.Logger.Warn("leads normalized without email", "count", missingEmail, "total", len(out))
	}
	n.Metrics.ObserveLeadsNormalized(len(out))
	return out
}
