package exam

import (
	"encoding/json"
	"strings"
)

// decodeAnswer interprets an answer payload: a JSON array of option ids, a
// JSON string, or (as a fallback for non-JSON stored values) the raw bytes
// as free text.
func decodeAnswer(raw []byte) (scalar string, set []string, isSet bool) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return "", list, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil, false
	}
	return string(raw), nil, false
}

func normalizeScalar(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CheckAnswer reports whether a submitted answer matches the canonical one.
//
// A set-valued canonical answer (multi-select) matches a submission of equal
// cardinality containing every canonical id, order- and duplicate-insensitive.
// A scalar canonical answer matches after trimming and lowercasing both
// sides. A set submitted against a scalar, or vice versa, is wrong.
//
// Subjective questions go through the same scalar rule as fill-ins; open-ended
// answers therefore only score on an exact normalized match.
func CheckAnswer(canonical, submitted json.RawMessage) bool {
	canonScalar, canonSet, canonIsSet := decodeAnswer(canonical)
	subScalar, subSet, subIsSet := decodeAnswer(submitted)

	if canonIsSet {
		if !subIsSet {
			return false
		}
		want := make(map[string]bool, len(canonSet))
		for _, id := range canonSet {
			want[normalizeScalar(id)] = true
		}
		got := make(map[string]bool, len(subSet))
		for _, id := range subSet {
			got[normalizeScalar(id)] = true
		}
		if len(want) != len(got) {
			return false
		}
		for id := range want {
			if !got[id] {
				return false
			}
		}
		return true
	}

	if subIsSet {
		return false
	}
	return normalizeScalar(canonScalar) == normalizeScalar(subScalar)
}
