package fhir

import (
	"fmt"
	"strings"
)

// FormatReference creates a FHIR reference string.
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

// LocalReference points at a contained resource.
func LocalReference(id string) string {
	return "#" + id
}

// IsLocalReference reports whether ref targets a contained resource.
func IsLocalReference(ref string) bool {
	return strings.HasPrefix(ref, "#")
}

// ParseReference splits "<Type>/<id>". Absolute URLs are accepted and only
// their last two segments are used. Versioned references
// ("Patient/1/_history/2") drop the history part.
func ParseReference(ref string) (resourceType, id string, err error) {
	if ref == "" {
		return "", "", fmt.Errorf("empty reference")
	}
	if IsLocalReference(ref) {
		return "", "", fmt.Errorf("local reference %q has no resource type", ref)
	}
	if i := strings.Index(ref, "/_history/"); i >= 0 {
		ref = ref[:i]
	}
	parts := strings.Split(strings.TrimRight(ref, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("reference %q is not of the form <Type>/<id>", ref)
	}
	resourceType = parts[len(parts)-2]
	id = parts[len(parts)-1]
	if resourceType == "" || id == "" {
		return "", "", fmt.Errorf("reference %q is not of the form <Type>/<id>", ref)
	}
	return resourceType, id, nil
}
