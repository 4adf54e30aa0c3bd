package converter

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// AttachmentHash returns the hex SHA-1 of the base64 data text, the digest
// carried in Attachment.hash.
func AttachmentHash(data string) string {
	sum := sha1.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

// claimAttachment validates a claim document against the MIME allow-list
// and, when a hash is supplied, against its SHA-1 digest.
func (b *base) claimAttachment(a *fhir.Attachment) (*imis.ClaimAttachment, error) {
	if a == nil {
		return nil, &AttachmentError{Message: "Missing attachment value"}
	}
	if !b.s.AttachmentMIME.MatchString(a.ContentType) {
		return nil, &AttachmentError{Title: a.Title, Message: "Mime type " + a.ContentType + " not allowed"}
	}
	if a.Hash != "" && !strings.EqualFold(AttachmentHash(a.Data), a.Hash) {
		return nil, &AttachmentError{Title: a.Title, Message: "Hash for data file is incorrect"}
	}
	return &imis.ClaimAttachment{
		Title:    a.Title,
		Filename: a.Title,
		Document: a.Data,
		Mime:     a.ContentType,
		Date:     parseDate(a.Creation),
	}, nil
}

func fhirAttachment(ca *imis.ClaimAttachment) *fhir.Attachment {
	title := ca.Filename
	if title == "" {
		title = ca.Title
	}
	a := &fhir.Attachment{
		ContentType: ca.Mime,
		Data:        ca.Document,
		Title:       title,
		Creation:    formatDateTime(ca.Date),
	}
	if ca.Document != "" {
		a.Hash = AttachmentHash(ca.Document)
	}
	return a
}
