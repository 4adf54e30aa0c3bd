package fhir

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	datePattern     = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2}(T\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:\d{2})?)?)?)?$`)
)

// knownResourceTypes lists the resource types this server exchanges.
var knownResourceTypes = map[string]bool{
	"Patient": true, "Group": true, "Location": true, "Organization": true,
	"Practitioner": true, "PractitionerRole": true, "Claim": true,
	"ClaimResponse": true, "Coverage": true, "Contract": true,
	"Invoice": true, "Bill": true, "InsurancePlan": true, "Medication": true,
	"ActivityDefinition": true, "Condition": true, "CommunicationRequest": true,
	"CodeSystem": true, "Subscription": true, "Bundle": true,
	"OperationOutcome": true, "CapabilityStatement": true,
}

// IsKnownResourceType reports whether rt is exchanged by this server.
func IsKnownResourceType(rt string) bool {
	return knownResourceTypes[rt]
}

// ValidationResult holds the results of a FHIR resource validation.
type ValidationResult struct {
	Valid  bool
	Issues []OperationOutcomeIssue
}

// ToOperationOutcome converts a ValidationResult into an OperationOutcome.
func (vr *ValidationResult) ToOperationOutcome() *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue:        vr.Issues,
	}
}

func (vr *ValidationResult) add(code, diagnostics, expression string) {
	vr.Valid = false
	issue := OperationOutcomeIssue{
		Severity:    IssueSeverityError,
		Code:        code,
		Diagnostics: diagnostics,
	}
	if expression != "" {
		issue.Expression = []string{expression}
	}
	vr.Issues = append(vr.Issues, issue)
}

// Validator checks resources structurally. Element rules live in the
// validate struct tags of the resource types.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the FHIR primitive rules registered.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("fhirdate", validateFHIRDate)
	_ = v.RegisterValidation("fhirdatetime", validateFHIRDateTime)
	return &Validator{validate: v}
}

var (
	defaultValidator     *Validator
	defaultValidatorOnce sync.Once
)

// DefaultValidator returns the shared Validator.
func DefaultValidator() *Validator {
	defaultValidatorOnce.Do(func() { defaultValidator = NewValidator() })
	return defaultValidator
}

func validateFHIRDate(fl validator.FieldLevel) bool {
	return datePattern.MatchString(fl.Field().String())
}

func validateFHIRDateTime(fl validator.FieldLevel) bool {
	return dateTimePattern.MatchString(fl.Field().String())
}

// Struct validates a typed resource against its tags.
func (v *Validator) Struct(r Resource) *ValidationResult {
	result := &ValidationResult{Valid: true}
	err := v.validate.Struct(r)
	if err == nil {
		return result
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		result.add(IssueTypeStructure, err.Error(), "")
		return result
	}
	for _, fe := range verrs {
		path := fieldPath(fe)
		code := IssueTypeValue
		if fe.Tag() == "required" {
			code = IssueTypeRequired
		}
		result.add(code, describeFieldError(path, fe), path)
	}
	return result
}

// fieldPath turns "Claim.DomainResource.resourceType" style namespaces into
// FHIRPath-like expressions.
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	out := parts[:0]
	for _, p := range parts {
		if p == "DomainResource" || p == "" {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}

func describeFieldError(path string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "oneof":
		return fmt.Sprintf("%s has invalid value %q, expected one of: %s", path, fe.Value(), fe.Param())
	case "fhirdate":
		return fmt.Sprintf("%s is not a valid FHIR date: %v", path, fe.Value())
	case "fhirdatetime":
		return fmt.Sprintf("%s is not a valid FHIR dateTime: %v", path, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}

// ValidateResource validates a raw JSON resource. It checks the
// resourceType and, for updates, the id before any typed decoding.
func (v *Validator) ValidateResource(data json.RawMessage, requireID bool) *ValidationResult {
	result := &ValidationResult{Valid: true}

	var resource map[string]interface{}
	if err := json.Unmarshal(data, &resource); err != nil {
		result.add(IssueTypeStructure, "invalid JSON: "+err.Error(), "")
		return result
	}
	v.validateResourceType(resource, result)
	if requireID {
		v.validateID(resource, result)
	}
	return result
}

func (v *Validator) validateResourceType(resource map[string]interface{}, result *ValidationResult) {
	rt, ok := resource["resourceType"]
	if !ok {
		result.add(IssueTypeRequired, "resourceType is required", "resourceType")
		return
	}
	rtStr, ok := rt.(string)
	if !ok || rtStr == "" {
		result.add(IssueTypeValue, "resourceType must be a non-empty string", "resourceType")
		return
	}
	if !knownResourceTypes[rtStr] {
		result.add(IssueTypeValue, fmt.Sprintf("unknown resourceType: %s", rtStr), "resourceType")
	}
}

func (v *Validator) validateID(resource map[string]interface{}, result *ValidationResult) {
	id, ok := resource["id"]
	if !ok {
		result.add(IssueTypeRequired, "id is required for update operations", "id")
		return
	}
	if idStr, ok := id.(string); !ok || idStr == "" {
		result.add(IssueTypeValue, "id must be a non-empty string", "id")
	}
}

// SchemaError reports a payload that does not decode into, or does not
// validate as, the expected resource type.
type SchemaError struct {
	ResourceType string
	Issues       []OperationOutcomeIssue
}

func (e *SchemaError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		msgs = append(msgs, i.Diagnostics)
	}
	return fmt.Sprintf("invalid %s: %s", e.ResourceType, strings.Join(msgs, "; "))
}

// Decode unmarshals raw into dst and validates it. The payload's
// resourceType must equal want.
func Decode(raw []byte, want string, dst Resource) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return &SchemaError{ResourceType: want, Issues: []OperationOutcomeIssue{{
			Severity: IssueSeverityError, Code: IssueTypeStructure, Diagnostics: err.Error(),
		}}}
	}
	if got := dst.GetResourceType(); got != want {
		return &SchemaError{ResourceType: want, Issues: []OperationOutcomeIssue{{
			Severity:    IssueSeverityError,
			Code:        IssueTypeInvalid,
			Diagnostics: fmt.Sprintf("resourceType %q does not match %s", got, want),
			Expression:  []string{"resourceType"},
		}}}
	}
	if res := DefaultValidator().Struct(dst); !res.Valid {
		return &SchemaError{ResourceType: want, Issues: res.Issues}
	}
	return nil
}

// PeekResourceType returns the resourceType of a JSON payload, or "" when
// the payload has none.
func PeekResourceType(raw []byte) string {
	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	return head.ResourceType
}
