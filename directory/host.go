package directory

import (
	"regexp"
	"strings"
)

// SynthSettings are the per-site password synthesizer inputs.
type SynthSettings struct {
	Serial       string `cbor:"serial,omitempty" json:"serial,omitempty"`
	AllowedChars string `cbor:"allowedChars,omitempty" json:"allowedChars,omitempty"`
	LengthLimit  int    `cbor:"lengthLimit,omitempty" json:"lengthLimit,omitempty"`
}

// CryptRecord holds the per-site identity and encrypted notes. Notes, Once
// and Pwd are k-mode blobs.
type CryptRecord struct {
	Email string `cbor:"email,omitempty" json:"email,omitempty"`
	Lock  string `cbor:"lock,omitempty" json:"lock,omitempty"`
	Notes string `cbor:"notes,omitempty" json:"notes,omitempty"`
	Once  string `cbor:"once,omitempty" json:"once,omitempty"`
	Pwd   string `cbor:"pwd,omitempty" json:"pwd,omitempty"`
}

// HostRecord is everything stored for one registered domain.
type HostRecord struct {
	Synth *SynthSettings `cbor:"synth,omitempty" json:"synth,omitempty"`
	Crypt *CryptRecord   `cbor:"crypt,omitempty" json:"crypt,omitempty"`
}

// EnsureCrypt returns the crypt section, creating it if needed.
func (h *HostRecord) EnsureCrypt() *CryptRecord {
	if h.Crypt == nil {
		h.Crypt = &CryptRecord{}
	}
	return h.Crypt
}

// IsEmpty reports whether the record carries nothing worth storing.
func (h *HostRecord) IsEmpty() bool {
	return (h.Synth == nil || *h.Synth == SynthSettings{}) && (h.Crypt == nil || *h.Crypt == CryptRecord{})
}

var (
	portSuffix  = regexp.MustCompile(`:\d+$`)
	wwwPrefix   = regexp.MustCompile(`^www\d*\.`)
	dottedQuad  = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)
	ccTLDExempt = map[string]bool{"ai": true, "io": true, "me": true, "tv": true, "cc": true, "fm": true, "am": true}
)

// RegisteredDomain reduces a hostname to the key host records are stored
// under: "mail.google.com" and "www.google.com" both become "google.com",
// "news.bbc.co.uk" becomes "bbc.co.uk". Two-letter TLDs keep three labels
// unless they are generic-use ccTLDs like .io.
func RegisteredDomain(hostname string) string {
	if hostname == "" {
		return hostname
	}
	h := strings.ToLower(hostname)
	h = portSuffix.ReplaceAllString(h, "")
	h = strings.TrimSuffix(h, ".")
	if dottedQuad.MatchString(h) || !strings.Contains(h, ".") {
		return h
	}
	h = wwwPrefix.ReplaceAllString(h, "")

	parts := strings.Split(h, ".")
	if len(parts) <= 2 {
		return h
	}
	tld := parts[len(parts)-1]
	if len(tld) == 2 && !ccTLDExempt[tld] {
		return strings.Join(parts[len(parts)-3:], ".")
	}
	return strings.Join(parts[len(parts)-2:], ".")
}
