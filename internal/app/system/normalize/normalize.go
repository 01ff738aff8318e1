// internal/app/system/normalize/normalize.go
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name, preserving case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role trims and lowercases a role.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status trims and lowercases a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a raw query-string value, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Filter is QueryParam with the UI sentinel "all" mapped to "" (no filter).
func Filter(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}

// Title trims a material title. Case is preserved; comparisons use the
// lowercased title_ci field.
func Title(s string) string {
	return strings.TrimSpace(s)
}

// Subject trims and lowercases a subject.
func Subject(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tags normalizes a list of tags that are already separate values. Every
// tag is trimmed and lowercased; empty and repeated tags are dropped. Values
// are never split, so a tag may contain a comma. The result is never nil.
func Tags(values ...string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, t := range values {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// TagString normalizes tags sent as one string: a JSON array
// (`["math","algebra"]`) or a comma-separated list ("math, algebra").
func TagString(s string) []string {
	return Tags(splitTagString(s)...)
}

// FormTags normalizes the values of a repeated form field. A single value
// is parsed with TagString; several values are taken as separate tags.
func FormTags(values []string) []string {
	if len(values) == 1 {
		return TagString(values[0])
	}
	return Tags(values...)
}

func splitTagString(s string) []string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			out := make([]string, 0, len(arr))
			for _, v := range arr {
				if v == nil {
					continue
				}
				out = append(out, fmt.Sprint(v))
			}
			return out
		}
	}
	return strings.Split(s, ",")
}
