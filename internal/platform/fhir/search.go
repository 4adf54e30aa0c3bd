package fhir

import (
	"fmt"
	"strings"
	"time"
)

// SearchPrefix represents a FHIR search prefix for ordered values.
type SearchPrefix string

const (
	PrefixEq SearchPrefix = "eq"
	PrefixNe SearchPrefix = "ne"
	PrefixGt SearchPrefix = "gt"
	PrefixLt SearchPrefix = "lt"
	PrefixGe SearchPrefix = "ge"
	PrefixLe SearchPrefix = "le"
	PrefixSa SearchPrefix = "sa" // starts after
	PrefixEb SearchPrefix = "eb" // ends before
	PrefixAp SearchPrefix = "ap" // approximately
)

// ParsedSearch holds a parsed search parameter value with its prefix.
type ParsedSearch struct {
	Prefix SearchPrefix
	Value  string
}

// ParseSearchValue extracts the prefix from a FHIR search value.
// Examples: "gt2023-01-01" -> (gt, "2023-01-01"), "100" -> (eq, "100")
func ParseSearchValue(raw string) ParsedSearch {
	if len(raw) >= 2 {
		prefix := SearchPrefix(strings.ToLower(raw[:2]))
		switch prefix {
		case PrefixEq, PrefixNe, PrefixGt, PrefixLt, PrefixGe, PrefixLe, PrefixSa, PrefixEb, PrefixAp:
			return ParsedSearch{Prefix: prefix, Value: raw[2:]}
		}
	}
	return ParsedSearch{Prefix: PrefixEq, Value: raw}
}

// LastUpdatedLayout is the only accepted _lastUpdated value format.
const LastUpdatedLayout = "2006-01-02T15:04:05"

// DateFilter is a comparison against a record's last-updated instant.
// Range filters carry both bounds, inclusive.
type DateFilter struct {
	Op    SearchPrefix
	Value time.Time
	Low   time.Time
	High  time.Time
}

// Match reports whether t satisfies the filter.
func (f DateFilter) Match(t time.Time) bool {
	switch f.Op {
	case PrefixNe:
		return !t.Equal(f.Value)
	case PrefixGt:
		return t.After(f.Value)
	case PrefixLt:
		return t.Before(f.Value)
	case PrefixGe:
		return !t.Before(f.Value)
	case PrefixLe:
		return !t.After(f.Value)
	case PrefixAp:
		return !t.Before(f.Low) && !t.After(f.High)
	default:
		return t.Equal(f.Value)
	}
}

// ParseLastUpdated turns a _lastUpdated value into a DateFilter. "sa" and
// "eb" degrade to "ge" and "le". "ap" matches within a tenth of the whole
// days elapsed between the value and now, on either side.
func ParseLastUpdated(raw string, now time.Time) (DateFilter, error) {
	parsed := ParseSearchValue(raw)
	t, err := time.Parse(LastUpdatedLayout, parsed.Value)
	if err != nil {
		return DateFilter{}, fmt.Errorf("_lastUpdated value is not a valid datetime")
	}
	f := DateFilter{Op: parsed.Prefix, Value: t}
	switch parsed.Prefix {
	case PrefixSa:
		f.Op = PrefixGe
	case PrefixEb:
		f.Op = PrefixLe
	case PrefixAp:
		days := int(now.Sub(t).Hours() / 24)
		spread := time.Duration(float64(days) * 0.1 * float64(24*time.Hour))
		if spread < 0 {
			spread = -spread
		}
		f.Low = t.Add(-spread)
		f.High = t.Add(spread)
	}
	return f, nil
}

// SQLClause renders the filter against column with positional arguments
// starting at argIdx. It returns the clause, its arguments and the next index.
func (f DateFilter) SQLClause(column string, argIdx int) (string, []interface{}, int) {
	switch f.Op {
	case PrefixNe:
		return fmt.Sprintf("%s != $%d", column, argIdx), []interface{}{f.Value}, argIdx + 1
	case PrefixGt:
		return fmt.Sprintf("%s > $%d", column, argIdx), []interface{}{f.Value}, argIdx + 1
	case PrefixLt:
		return fmt.Sprintf("%s < $%d", column, argIdx), []interface{}{f.Value}, argIdx + 1
	case PrefixGe:
		return fmt.Sprintf("%s >= $%d", column, argIdx), []interface{}{f.Value}, argIdx + 1
	case PrefixLe:
		return fmt.Sprintf("%s <= $%d", column, argIdx), []interface{}{f.Value}, argIdx + 1
	case PrefixAp:
		clause := fmt.Sprintf("(%s >= $%d AND %s <= $%d)", column, argIdx, column, argIdx+1)
		return clause, []interface{}{f.Low, f.High}, argIdx + 2
	default:
		return fmt.Sprintf("%s = $%d", column, argIdx), []interface{}{f.Value}, argIdx + 1
	}
}

// parseFlexDate parses a date string in multiple FHIR-supported formats.
func parseFlexDate(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2006-01",
		"2006",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// ParseDate parses a FHIR date or dateTime value.
func ParseDate(s string) (time.Time, error) {
	return parseFlexDate(s)
}

// FormatDate renders t as a FHIR date.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatDateTime renders t as a FHIR dateTime without zone.
func FormatDateTime(t time.Time) string {
	return t.Format(LastUpdatedLayout)
}
