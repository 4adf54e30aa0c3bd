package converter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// ReferenceType selects the record attribute embedded in emitted references.
type ReferenceType string

const (
	ReferenceUUID ReferenceType = "uuid"
	ReferenceDBID ReferenceType = "db_id"
	ReferenceCode ReferenceType = "code"
)

// ParseReferenceType accepts the short names and their "_reference"
// suffixed forms, case-insensitively. The empty string selects UUID.
func ParseReferenceType(s string) (ReferenceType, error) {
	v := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "_reference")
	switch v {
	case "", "uuid":
		return ReferenceUUID, nil
	case "db_id", "dbid", "id":
		return ReferenceDBID, nil
	case "code":
		return ReferenceCode, nil
	}
	return "", fmt.Errorf("unknown reference type %q", s)
}

type codePolicy int

const (
	codeNative codePolicy = iota
	codeFallbackUUID
	codeUnsupported
)

// codePolicies says what CODE mode means for kinds without a business code.
var codePolicies = map[imis.Kind]codePolicy{
	imis.KindFamily:       codeFallbackUUID,
	imis.KindPolicy:       codeFallbackUUID,
	imis.KindFeedback:     codeFallbackUUID,
	imis.KindSubscription: codeUnsupported,
}

// ReferenceKey returns the attribute of rec addressed by mode.
func ReferenceKey(rec imis.Record, mode ReferenceType) (string, error) {
	meta := rec.Meta()
	switch mode {
	case ReferenceUUID, "":
		return meta.UUID, nil
	case ReferenceDBID:
		return strconv.Itoa(meta.ID), nil
	case ReferenceCode:
		if code, ok := imis.CodeOf(rec); ok && code != "" {
			return code, nil
		}
		if _, coded := rec.(imis.Coded); coded {
			// a coded record with an empty code, e.g. a Party of an uncoded kind
			return meta.UUID, nil
		}
		switch codePolicies[rec.Kind()] {
		case codeFallbackUUID:
			return meta.UUID, nil
		default:
			return "", &UnsupportedReferenceTypeError{Kind: rec.Kind(), Mode: mode}
		}
	}
	return "", &UnsupportedReferenceTypeError{Kind: rec.Kind(), Mode: mode}
}

// BuildReference constructs "<resourceType>/<key>" for rec.
func BuildReference(rec imis.Record, resourceType string, mode ReferenceType, display string) (*fhir.Reference, error) {
	key, err := ReferenceKey(rec, mode)
	if err != nil {
		return nil, err
	}
	return &fhir.Reference{
		Reference: fhir.FormatReference(resourceType, key),
		Type:      resourceType,
		Display:   display,
	}, nil
}

// ResolveReference returns the key of a "<Type>/<key>" reference. When
// strict is set a type segment other than expectedType is an error,
// otherwise it is ignored.
func ResolveReference(ref *fhir.Reference, expectedType string, strict bool) (string, error) {
	if ref == nil || ref.Reference == "" {
		return "", fmt.Errorf("missing %s reference", expectedType)
	}
	rt, key, err := fhir.ParseReference(ref.Reference)
	if err != nil {
		return "", err
	}
	if strict && expectedType != "" && rt != expectedType {
		return "", fmt.Errorf("reference %q does not point to a %s", ref.Reference, expectedType)
	}
	return key, nil
}
