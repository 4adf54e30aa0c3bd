package converter

import (
	"context"

	"github.com/openimis/imis-fhir/internal/imis"
	"github.com/openimis/imis-fhir/internal/platform/fhir"
)

// Feedback prompt questions. The payload extension carries the code so a
// client can answer by code instead of by text.
const (
	FeedbackCareRendered   = "CareRendered"
	FeedbackPaymentAsked   = "PaymentAsked"
	FeedbackDrugPrescribed = "DrugPrescribed"
	FeedbackDrugReceived   = "DrugReceived"
	FeedbackAssessment     = "Asessment"
)

var feedbackQuestions = []struct{ code, text string }{
	{FeedbackCareRendered, "Care rendered?"},
	{FeedbackPaymentAsked, "Payment asked?"},
	{FeedbackDrugPrescribed, "Drug prescribed?"},
	{FeedbackDrugReceived, "Drug received?"},
	{FeedbackAssessment, "Asessment?"},
}

// CommunicationRequestConverter maps claim feedback prompts.
type CommunicationRequestConverter struct {
	base *base
}

func (c *CommunicationRequestConverter) Converter() Converter {
	return &typed[*imis.Feedback, *fhir.CommunicationRequest]{
		name:         "communication_request",
		resourceType: "CommunicationRequest",
		kind:         imis.KindFeedback,
		newResource:  func() *fhir.CommunicationRequest { return &fhir.CommunicationRequest{} },
		toFHIR:       c.ToFHIR,
		toIMIS:       c.ToIMIS,
	}
}

func answered(f *imis.Feedback) bool {
	return f.CareRendered != nil || f.PaymentAsked != nil || f.DrugPrescribed != nil ||
		f.DrugReceived != nil || f.Assessment != nil
}

func (c *CommunicationRequestConverter) ToFHIR(f *imis.Feedback, mode ReferenceType) (*fhir.CommunicationRequest, error) {
	b := c.base
	if f.Claim == nil {
		return nil, &ConversionError{Relation: "claim", Message: "Cannot construct feedback " + f.UUID + " without claim"}
	}
	cr := &fhir.CommunicationRequest{
		DomainResource:     fhir.DomainResource{ResourceType: "CommunicationRequest", Meta: newMeta(f)},
		Status:             "active",
		OccurrenceDateTime: formatDateTime(f.PromptDate),
	}
	if answered(f) {
		cr.Status = "completed"
	}
	pk(cr, f, mode)
	cr.Identifier = b.identifiers(f)

	if ref := b.reference(f.Claim, "Claim", mode, f.Claim.Code); ref != nil {
		cr.About = []fhir.Reference{*ref}
	}
	if f.Claim.Insuree != nil {
		cr.Subject = b.reference(f.Claim.Insuree, "Patient", mode, f.Claim.Insuree.CHFID)
	}
	if f.Officer != nil {
		if ref := b.reference(f.Officer, "Practitioner", mode, f.Officer.Code); ref != nil {
			cr.Recipient = []fhir.Reference{*ref}
		}
	}
	for _, q := range feedbackQuestions {
		cr.Payload = append(cr.Payload, fhir.CommunicationRequestPayload{
			Extension:     []fhir.Extension{{URL: b.ext("communication-payload-type"), ValueCode: q.code}},
			ContentString: q.text,
		})
	}
	return cr, nil
}

func (c *CommunicationRequestConverter) ToIMIS(ctx context.Context, cr *fhir.CommunicationRequest, auditUserID int) (*imis.Feedback, error) {
	b := c.base
	var errs Errors
	f := &imis.Feedback{Base: newRecordBase(auditUserID)}
	b.readIdentifiers(&f.Base, cr.Identifier)

	if errs.Require(len(cr.About) > 0, "Missing `about` attribute") {
		f.Claim, _ = b.resolve(ctx, &cr.About[0], "Claim", imis.KindClaim).(*imis.Claim)
		errs.Require(f.Claim != nil, "Claim "+cr.About[0].Reference+" not found")
	}
	if len(cr.Recipient) > 0 {
		f.Officer, _ = b.resolve(ctx, &cr.Recipient[0], "Practitioner", imis.KindOfficer).(*imis.Officer)
		errs.Require(f.Officer != nil, "Practitioner "+cr.Recipient[0].Reference+" not found")
	}
	if cr.OccurrenceDateTime != "" {
		f.PromptDate = parseDate(cr.OccurrenceDateTime)
		errs.Require(f.PromptDate != nil, "Invalid `occurrenceDateTime` attribute")
	}

	if err := errs.Check(); err != nil {
		return nil, err
	}
	return f, nil
}
