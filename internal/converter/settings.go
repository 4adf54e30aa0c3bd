package converter

import (
	"regexp"

	"github.com/openimis/imis-fhir/internal/mapping"
)

// DefaultAttachmentMIMEPattern lists the claim attachment types accepted
// when nothing else is configured.
const DefaultAttachmentMIMEPattern = `^(image/.*|application/pdf|application/msword|text/plain)$`

// Settings is the read-only configuration threaded into every converter.
type Settings struct {
	Tables   *mapping.Tables
	Currency string
	// AttachmentMIME is matched case-insensitively against attachment
	// content types.
	AttachmentMIME *regexp.Regexp
}

// DefaultSettings uses the default tables, USD and the default MIME pattern.
func DefaultSettings() *Settings {
	s, _ := NewSettings(mapping.DefaultSystemBaseURL, "USD", DefaultAttachmentMIMEPattern)
	return s
}

// NewSettings builds Settings for a system base URL. The MIME pattern is
// compiled case-insensitively.
func NewSettings(systemBaseURL, currency, mimePattern string) (*Settings, error) {
	if mimePattern == "" {
		mimePattern = DefaultAttachmentMIMEPattern
	}
	re, err := regexp.Compile("(?i)" + mimePattern)
	if err != nil {
		return nil, err
	}
	return &Settings{
		Tables:         mapping.New(systemBaseURL),
		Currency:       currency,
		AttachmentMIME: re,
	}, nil
}
