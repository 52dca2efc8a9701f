package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"fleetops/nodewarden/internal/domain"
)

// FieldSpec describes a single user-editable node field. The set of specs
// below is the closed allow-list for UpdateField: unknown field names never
// reach SQL, and each field carries its own validation and normalization.
type FieldSpec struct {
	// Name is the CLI-facing field name (e.g. "cpu").
	Name string

	// Column is the nodes table column the field maps to.
	Column string

	// Description is a short human-readable explanation shown in help text.
	Description string

	// Normalize validates the raw value and returns the value to store.
	Normalize func(value string) (any, error)
}

func nonEmpty(field string) func(string) (any, error) {
	return func(value string) (any, error) {
		v := strings.TrimSpace(value)
		if v == "" {
			return nil, fmt.Errorf("%s must not be empty: %w", field, domain.ErrValidation)
		}
		return v, nil
	}
}

// Fields is the authoritative list of editable node fields.
// To make another field editable, append a FieldSpec here.
var Fields = []FieldSpec{
	{
		Name:        "name",
		Column:      "name",
		Description: "Display name",
		Normalize: func(value string) (any, error) {
			v := strings.TrimSpace(value)
			if v == "" || len(v) > 64 {
				return nil, fmt.Errorf("name must be 1-64 characters: %w", domain.ErrValidation)
			}
			return v, nil
		},
	},
	{
		Name:        "ram",
		Column:      "ram",
		Description: "Memory allocation (e.g. 2GB)",
		Normalize:   nonEmpty("ram"),
	},
	{
		Name:        "cpu",
		Column:      "cpu_cores",
		Description: "CPU core count",
		Normalize: func(value string) (any, error) {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("cpu must be a positive integer: %w", domain.ErrValidation)
			}
			return n, nil
		},
	},
	{
		Name:        "storage",
		Column:      "storage",
		Description: "Disk allocation (e.g. 40GB)",
		Normalize:   nonEmpty("storage"),
	},
	{
		Name:        "location",
		Column:      "location",
		Description: "Datacenter location",
		Normalize:   nonEmpty("location"),
	},
	{
		Name:        "notes",
		Column:      "notes",
		Description: "Free-form notes",
		Normalize: func(value string) (any, error) {
			return value, nil
		},
	},
	{
		Name:        "tags",
		Column:      "tags",
		Description: "Comma-separated tag list",
		Normalize: func(value string) (any, error) {
			return marshalTags(SplitTags(value))
		},
	},
}

// LookupField returns the FieldSpec for the given name, or nil if the
// field is not editable. Matching is case-insensitive.
func LookupField(name string) *FieldSpec {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i := range Fields {
		if Fields[i].Name == normalized {
			return &Fields[i]
		}
	}
	return nil
}

// FieldNames returns the names of all editable fields.
func FieldNames() []string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = f.Name
	}
	return names
}

// FieldsHelp builds a formatted block listing all editable fields and
// their descriptions, suitable for inclusion in Cobra Long help text.
func FieldsHelp() string {
	maxLen := 0
	for _, f := range Fields {
		if len(f.Name) > maxLen {
			maxLen = len(f.Name)
		}
	}

	var b strings.Builder
	for _, f := range Fields {
		fmt.Fprintf(&b, "  %-*s   %s\n", maxLen, f.Name, f.Description)
	}
	return b.String()
}

// SplitTags parses a comma-separated tag list, trimming whitespace and
// dropping empties and duplicates while preserving first-seen order.
func SplitTags(value string) []string {
	var tags []string
	seen := map[string]struct{}{}
	for _, raw := range strings.Split(value, ",") {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// marshalTags encodes tags for the TEXT column. An empty set is stored as
// the empty string rather than "null" or "[]".
func marshalTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("registry: failed to encode tags: %w", err)
	}
	return string(data), nil
}

func unmarshalTags(stored string) []string {
	if stored == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(stored), &tags); err != nil {
		return nil
	}
	return tags
}
