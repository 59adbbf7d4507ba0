package originhttp

import "strings"

// Header is a case-insensitive, multi-valued header map that preserves the
// original case of every key it was given and the order fields were
// inserted in. Unlike net/http.Header (which canonicalizes keys into the
// map itself, destroying the wire-observed case), Header keeps the
// as-received casing for emission while still resolving lookups
// case-insensitively, per spec invariant "Header keys compare
// case-insensitively but retain original case on emit."
type Header struct {
	fields []headerField
}

type headerField struct {
	key   string
	value string
}

// NewHeader returns an empty Header ready for use.
func NewHeader() Header {
	return Header{}
}

// Add appends a value for key, preserving key's case as given.
func (h *Header) Add(key, value string) {
	h.fields = append(h.fields, headerField{key: key, value: value})
}

// Set replaces all values for key (case-insensitive match) with value,
// keeping the position of the first existing match and its original
// casing; if no field with that key exists, it is appended with key's
// case as given.
func (h *Header) Set(key, value string) {
	lower := strings.ToLower(key)
	replaced := false
	out := h.fields[:0:0]
	for _, f := range h.fields {
		if strings.ToLower(f.key) == lower {
			if !replaced {
				out = append(out, headerField{key: f.key, value: value})
				replaced = true
			}
			continue
		}
		out = append(out, f)
	}
	if !replaced {
		out = append(out, headerField{key: key, value: value})
	}
	h.fields = out
}

// Get returns the last value added for key, matching case-insensitively,
// or "" if absent.
func (h Header) Get(key string) string {
	lower := strings.ToLower(key)
	val := ""
	found := false
	for _, f := range h.fields {
		if strings.ToLower(f.key) == lower {
			val = f.value
			found = true
		}
	}
	if !found {
		return ""
	}
	return val
}

// Values returns every value stored for key, in insertion order.
func (h Header) Values(key string) []string {
	lower := strings.ToLower(key)
	var out []string
	for _, f := range h.fields {
		if strings.ToLower(f.key) == lower {
			out = append(out, f.value)
		}
	}
	return out
}

// Has reports whether key is present, case-insensitively.
func (h Header) Has(key string) bool {
	lower := strings.ToLower(key)
	for _, f := range h.fields {
		if strings.ToLower(f.key) == lower {
			return true
		}
	}
	return false
}

// HasToken reports whether key's value(s) contain token as one of a
// comma-separated, case-insensitively compared list — used for
// "Connection: keep-alive, Upgrade"-style multi-token headers.
func (h Header) HasToken(key, token string) bool {
	token = strings.ToLower(strings.TrimSpace(token))
	for _, v := range h.Values(key) {
		for _, part := range strings.Split(v, ",") {
			if strings.ToLower(strings.TrimSpace(part)) == token {
				return true
			}
		}
	}
	return false
}

// Del removes every field matching key, case-insensitively.
func (h *Header) Del(key string) {
	lower := strings.ToLower(key)
	out := h.fields[:0:0]
	for _, f := range h.fields {
		if strings.ToLower(f.key) == lower {
			continue
		}
		out = append(out, f)
	}
	h.fields = out
}

// Keys returns the distinct field keys in first-occurrence order, with
// their originally observed casing.
func (h Header) Keys() []string {
	seen := make(map[string]bool, len(h.fields))
	var out []string
	for _, f := range h.fields {
		lower := strings.ToLower(f.key)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, f.key)
	}
	return out
}

// Clear empties the header map in place, so the underlying storage can be
// reused across keep-alive requests without reallocating.
func (h *Header) Clear() {
	h.fields = h.fields[:0]
}

// Len reports the number of individual field/value pairs stored.
func (h Header) Len() int {
	return len(h.fields)
}

// Range calls fn once per field, in insertion order, stopping early if fn
// returns false.
func (h Header) Range(fn func(key, value string) bool) {
	for _, f := range h.fields {
		if !fn(f.key, f.value) {
			return
		}
	}
}
