package fhir

// Medication is the R4 Medication resource (medical item).
type Medication struct {
	DomainResource
	Identifier []Identifier     `json:"identifier,omitempty" validate:"dive"`
	Code       *CodeableConcept `json:"code,omitempty"`
	Status     string           `json:"status,omitempty" validate:"omitempty,oneof=active inactive entered-in-error"`
	Form       *CodeableConcept `json:"form,omitempty"`
}

// ActivityDefinition is the R4 ActivityDefinition resource (medical service).
type ActivityDefinition struct {
	DomainResource
	Identifier []Identifier      `json:"identifier,omitempty" validate:"dive"`
	Name       string            `json:"name,omitempty"`
	Title      string            `json:"title,omitempty"`
	Status     string            `json:"status" validate:"required,oneof=draft active retired unknown"`
	Date       string            `json:"date,omitempty" validate:"omitempty,fhirdatetime"`
	UseContext []UsageContext    `json:"useContext,omitempty"`
	Topic      []CodeableConcept `json:"topic,omitempty"`
	Kind       string            `json:"kind,omitempty"`
	Timing     *Timing           `json:"timingTiming,omitempty"`
}

type Timing struct {
	Repeat *TimingRepeat `json:"repeat,omitempty"`
}

type TimingRepeat struct {
	Frequency  *int     `json:"frequency,omitempty"`
	Period     *float64 `json:"period,omitempty"`
	PeriodUnit string   `json:"periodUnit,omitempty"`
}

// Condition is the R4 Condition resource (diagnosis).
type Condition struct {
	DomainResource
	Identifier   []Identifier     `json:"identifier,omitempty" validate:"dive"`
	Code         *CodeableConcept `json:"code,omitempty"`
	Subject      Reference        `json:"subject"`
	RecordedDate string           `json:"recordedDate,omitempty" validate:"omitempty,fhirdatetime"`
}

// CommunicationRequest is the R4 CommunicationRequest resource. It carries
// a claim feedback prompt.
type CommunicationRequest struct {
	DomainResource
	Identifier         []Identifier                  `json:"identifier,omitempty" validate:"dive"`
	Status             string                        `json:"status" validate:"required,oneof=draft active on-hold revoked completed entered-in-error unknown"`
	Subject            *Reference                    `json:"subject,omitempty"`
	About              []Reference                   `json:"about,omitempty"`
	Payload            []CommunicationRequestPayload `json:"payload,omitempty" validate:"dive"`
	OccurrenceDateTime string                        `json:"occurrenceDateTime,omitempty" validate:"omitempty,fhirdatetime"`
	Recipient          []Reference                   `json:"recipient,omitempty"`
}

type CommunicationRequestPayload struct {
	Extension     []Extension `json:"extension,omitempty" validate:"dive"`
	ContentString string      `json:"contentString"`
}
