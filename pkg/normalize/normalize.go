// Package normalize extracts a single human-readable reply string from
// whatever JSON shape the upstream webhook happens to return. Automation
// flows are not contractually bound to one response format, so this package
// absorbs the variability and always produces some string.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// DefaultReply is returned whenever no usable content can be extracted.
const DefaultReply = "Hello! I received your message, but something went wrong while generating a reply. Please try sending your question again."

// candidates are probed in order; the first string-valued one wins.
var candidates = []string{"reply", "output", "response", "text", "message"}

// Reply extracts the assistant reply from a raw webhook response body.
// Precedence: a non-empty array is replaced by its first element; an object
// is probed for the candidate fields, then scanned in document order for
// any other string field, then serialized whole; a bare JSON string is
// returned as-is. Empty or whitespace-only results collapse to DefaultReply.
func Reply(raw []byte) string {
	return finalize(extract(bytes.TrimSpace(raw)))
}

func finalize(s string) string {
	if strings.TrimSpace(s) == "" {
		return DefaultReply
	}
	return s
}

func extract(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil || len(elems) == 0 {
			return ""
		}
		return extract(bytes.TrimSpace(elems[0]))
	case '{':
		return fromObject(raw)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	// numbers, booleans, null: no usable content
	return ""
}

type field struct {
	name  string
	value json.RawMessage
}

// fromObject probes the candidate fields first, then falls back to the
// first string field in document order, then to the serialized object.
// encoding/json maps do not preserve field order, so the object is walked
// with the token decoder instead.
func fromObject(raw []byte) string {
	fields, err := orderedFields(raw)
	if err != nil {
		return ""
	}
	for _, name := range candidates {
		for _, f := range fields {
			if f.name != name {
				continue
			}
			if s, ok := asString(f.value); ok {
				return s
			}
			break
		}
	}
	for _, f := range fields {
		if probed(f.name) {
			continue
		}
		if s, ok := asString(f.value); ok {
			return s
		}
	}
	compact := &bytes.Buffer{}
	if err := json.Compact(compact, raw); err != nil {
		return ""
	}
	return compact.String()
}

func probed(name string) bool {
	for _, c := range candidates {
		if c == name {
			return true
		}
	}
	return false
}

func orderedFields(raw []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // opening brace
		return nil, err
	}
	var out []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("unexpected token in object")
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, field{name: key, value: v})
	}
	return out, nil
}

func asString(raw json.RawMessage) (string, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || t[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(t, &s); err != nil {
		return "", false
	}
	return s, true
}
