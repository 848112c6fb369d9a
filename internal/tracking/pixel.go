package tracking

import (
	"fmt"
	"strings"
)

// gifPixel is a 1x1 transparent GIF. The pixel endpoint always returns these
// bytes, valid token or not, so opening a tracked email never shows a broken
// image.
var gifPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, // GIF89a
	0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF,
	0x21, 0xF9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00,
	0x2C, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	0x02, 0x02, 0x44, 0x01, 0x00, 0x3B,
}

// Injector appends a tracking pixel tag to outgoing email bodies.
type Injector struct {
	issuer  *TokenIssuer
	baseURL string
}

// NewInjector creates an injector. baseURL is the public address the pixel
// endpoint is reachable at, e.g. https://outreach.example.com.
func NewInjector(issuer *TokenIssuer, baseURL string) *Injector {
	return &Injector{issuer: issuer, baseURL: strings.TrimRight(baseURL, "/")}
}

// Inject appends the pixel img tag for a contact and the sequence step being
// sent. On signing failure the body is returned unchanged; losing one open
// beat losing the send.
func (i *Injector) Inject(body, contactID, stepID string) string {
	if i == nil || i.issuer == nil || i.baseURL == "" {
		return body
	}
	token, err := i.issuer.Issue(contactID, stepID)
	if err != nil {
		return body
	}
	tag := fmt.Sprintf(`<img src="%s/t/%s" width="1" height="1" alt="" style="display:none"/>`, i.baseURL, token)
	return body + tag
}
