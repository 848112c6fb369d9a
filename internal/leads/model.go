package leads

// RawRecord is a single lead payload as decoded from the campaign platform.
// The platform returns leads in several shapes (flat, nested under contact/lead,
// varying key names), so values are left untyped until normalization.
type RawRecord map[string]any

// NormalizedLead is the flat record the console renders and re-uploads.
// Email is the only field downstream code depends on; everything else is
// best-effort.
type NormalizedLead struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Title     string `json:"title,omitempty"`
}
