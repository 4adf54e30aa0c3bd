package fhir

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode string `json:"mode,omitempty"`
}

// SearchBundleParams holds pagination and link information for a search bundle.
type SearchBundleParams struct {
	BaseURL  string
	QueryStr string
	Count    int
	Offset   int
	Total    int
}

// NewSearchBundleWithLinks creates a searchset Bundle with pagination links.
// Resources that fail to marshal are skipped.
func NewSearchBundleWithLinks(resources []Resource, params SearchBundleParams) *Bundle {
	entries := make([]BundleEntry, 0, len(resources))
	for _, r := range resources {
		raw, err := json.Marshal(r)
		if err != nil {
			continue
		}
		entries = append(entries, MatchEntry(r.GetResourceType(), r.GetID(), raw))
	}
	return NewSearchBundle(entries, params)
}

// MatchEntry wraps an encoded resource as a search match.
func MatchEntry(resourceType, id string, raw json.RawMessage) BundleEntry {
	entry := BundleEntry{Resource: raw, Search: &BundleSearch{Mode: "match"}}
	if id != "" {
		entry.FullURL = FormatReference(resourceType, id)
	}
	return entry
}

// NewSearchBundle creates a searchset Bundle around already encoded entries.
func NewSearchBundle(entries []BundleEntry, params SearchBundleParams) *Bundle {
	now := time.Now().UTC()
	total := params.Total
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
		Timestamp:    &now,
		Link:         buildPaginationLinks(params),
		Entry:        entries,
	}
}

// buildPaginationLinks creates self, next, and previous links for searchset bundles.
func buildPaginationLinks(params SearchBundleParams) []BundleLink {
	link := func(offset int) string {
		return fmt.Sprintf("%s?%s_count=%d&_offset=%d", params.BaseURL, conditionalAmpersand(params.QueryStr), params.Count, offset)
	}
	links := []BundleLink{{Relation: "self", URL: link(params.Offset)}}

	if next := params.Offset + params.Count; next < params.Total {
		links = append(links, BundleLink{Relation: "next", URL: link(next)})
	}
	if params.Offset > 0 {
		prev := params.Offset - params.Count
		if prev < 0 {
			prev = 0
		}
		links = append(links, BundleLink{Relation: "previous", URL: link(prev)})
	}
	return links
}

// conditionalAmpersand returns the query string with a trailing & if non-empty.
func conditionalAmpersand(qs string) string {
	if qs == "" {
		return ""
	}
	return qs + "&"
}
