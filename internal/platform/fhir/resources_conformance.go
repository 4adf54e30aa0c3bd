package fhir

// CodeSystem is the R4 CodeSystem resource.
type CodeSystem struct {
	DomainResource
	URL         string              `json:"url,omitempty"`
	Name        string              `json:"name,omitempty"`
	Title       string              `json:"title,omitempty"`
	Status      string              `json:"status" validate:"required,oneof=draft active retired unknown"`
	Date        string              `json:"date,omitempty" validate:"omitempty,fhirdatetime"`
	Description string              `json:"description,omitempty"`
	Content     string              `json:"content" validate:"required,oneof=not-present example fragment complete supplement"`
	Count       int                 `json:"count,omitempty"`
	Concept     []CodeSystemConcept `json:"concept,omitempty"`
}

type CodeSystemConcept struct {
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// Subscription is the R4 Subscription resource.
type Subscription struct {
	DomainResource
	Status   string              `json:"status" validate:"required,oneof=requested active error off"`
	End      string              `json:"end,omitempty" validate:"omitempty,fhirdatetime"`
	Reason   string              `json:"reason,omitempty"`
	Criteria string              `json:"criteria" validate:"required"`
	Error    string              `json:"error,omitempty"`
	Channel  SubscriptionChannel `json:"channel"`
}

type SubscriptionChannel struct {
	Type     string   `json:"type" validate:"required,oneof=rest-hook websocket email sms message"`
	Endpoint string   `json:"endpoint,omitempty" validate:"omitempty,url"`
	Payload  string   `json:"payload,omitempty"`
	Header   []string `json:"header,omitempty"`
}
