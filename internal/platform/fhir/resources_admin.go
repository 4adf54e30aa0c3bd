package fhir

// Patient is the R4 Patient resource (insuree).
type Patient struct {
	DomainResource
	Identifier          []Identifier     `json:"identifier,omitempty" validate:"dive"`
	Active              *bool            `json:"active,omitempty"`
	Name                []HumanName      `json:"name,omitempty" validate:"dive"`
	Telecom             []ContactPoint   `json:"telecom,omitempty" validate:"dive"`
	Gender              string           `json:"gender,omitempty" validate:"omitempty,oneof=male female other unknown"`
	BirthDate           string           `json:"birthDate,omitempty" validate:"omitempty,fhirdate"`
	MaritalStatus       *CodeableConcept `json:"maritalStatus,omitempty"`
	Address             []Address        `json:"address,omitempty" validate:"dive"`
	Photo               []Attachment     `json:"photo,omitempty" validate:"dive"`
	Contact             []PatientContact `json:"contact,omitempty" validate:"dive"`
	GeneralPractitioner []Reference      `json:"generalPractitioner,omitempty"`
}

type PatientContact struct {
	Relationship []CodeableConcept `json:"relationship,omitempty"`
	Name         *HumanName        `json:"name,omitempty"`
}

// Group is the R4 Group resource (family).
type Group struct {
	DomainResource
	Identifier []Identifier  `json:"identifier,omitempty" validate:"dive"`
	Active     *bool         `json:"active,omitempty"`
	Type       string        `json:"type" validate:"required,oneof=person animal practitioner device medication substance"`
	Actual     bool          `json:"actual"`
	Name       string        `json:"name,omitempty"`
	Quantity   *int          `json:"quantity,omitempty"`
	Member     []GroupMember `json:"member,omitempty" validate:"dive"`
}

type GroupMember struct {
	Entity   Reference `json:"entity"`
	Inactive *bool     `json:"inactive,omitempty"`
}

// Location is the R4 Location resource.
type Location struct {
	DomainResource
	Identifier   []Identifier      `json:"identifier,omitempty" validate:"dive"`
	Status       string            `json:"status,omitempty" validate:"omitempty,oneof=active suspended inactive"`
	Name         string            `json:"name,omitempty"`
	Mode         string            `json:"mode,omitempty" validate:"omitempty,oneof=instance kind"`
	Type         []CodeableConcept `json:"type,omitempty"`
	PhysicalType *CodeableConcept  `json:"physicalType,omitempty"`
	Address      *Address          `json:"address,omitempty"`
	PartOf       *Reference        `json:"partOf,omitempty"`
}

// Organization is the R4 Organization resource. openIMIS serves health
// facilities, policy holders and the insurance organisation through it.
type Organization struct {
	DomainResource
	Identifier []Identifier          `json:"identifier,omitempty" validate:"dive"`
	Active     *bool                 `json:"active,omitempty"`
	Type       []CodeableConcept     `json:"type,omitempty"`
	Name       string                `json:"name,omitempty"`
	Telecom    []ContactPoint        `json:"telecom,omitempty" validate:"dive"`
	Address    []Address             `json:"address,omitempty" validate:"dive"`
	PartOf     *Reference            `json:"partOf,omitempty"`
	Contact    []OrganizationContact `json:"contact,omitempty" validate:"dive"`
}

type OrganizationContact struct {
	Purpose *CodeableConcept `json:"purpose,omitempty"`
	Name    *HumanName       `json:"name,omitempty"`
	Telecom []ContactPoint   `json:"telecom,omitempty" validate:"dive"`
	Address *Address         `json:"address,omitempty"`
}

// Practitioner is the R4 Practitioner resource (claim admin, enrolment officer).
type Practitioner struct {
	DomainResource
	Identifier    []Identifier                `json:"identifier,omitempty" validate:"dive"`
	Active        *bool                       `json:"active,omitempty"`
	Name          []HumanName                 `json:"name,omitempty" validate:"dive"`
	Telecom       []ContactPoint              `json:"telecom,omitempty" validate:"dive"`
	BirthDate     string                      `json:"birthDate,omitempty" validate:"omitempty,fhirdate"`
	Qualification []PractitionerQualification `json:"qualification,omitempty"`
}

type PractitionerQualification struct {
	Code CodeableConcept `json:"code"`
}

// PractitionerRole is the R4 PractitionerRole resource.
type PractitionerRole struct {
	DomainResource
	Identifier   []Identifier      `json:"identifier,omitempty" validate:"dive"`
	Active       *bool             `json:"active,omitempty"`
	Practitioner *Reference        `json:"practitioner,omitempty"`
	Organization *Reference        `json:"organization,omitempty"`
	Code         []CodeableConcept `json:"code,omitempty"`
	Location     []Reference       `json:"location,omitempty"`
	Telecom      []ContactPoint    `json:"telecom,omitempty" validate:"dive"`
}
