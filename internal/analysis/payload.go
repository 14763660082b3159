package analysis

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Payload provides lenient access to a decoded analysis service body.
// The service owns the shape, so every accessor tolerates missing or
// mistyped fields and falls back to a zero value.
type Payload map[string]any

// ParsePayload decodes a JSON object body. Non-object bodies are an error.
func ParsePayload(body []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// String returns a string field, or "" if absent or not a string.
func (p Payload) String(key string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Float returns a numeric field and whether it was present and numeric.
func (p Payload) Float(key string) (float64, bool) {
	if v, ok := p[key]; ok {
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case json.Number:
			f, err := n.Float64()
			return f, err == nil
		}
	}
	return 0, false
}

// Int returns an integer field, or 0 if not found.
func (p Payload) Int(key string) int {
	f, ok := p.Float(key)
	if !ok {
		return 0
	}
	return int(f)
}

// Object returns a nested object field, or nil.
func (p Payload) Object(key string) Payload {
	if v, ok := p[key]; ok {
		switch m := v.(type) {
		case map[string]any:
			return Payload(m)
		case Payload:
			return m
		}
	}
	return nil
}

// List returns an array field, or nil.
func (p Payload) List(key string) []any {
	if v, ok := p[key]; ok {
		if l, ok := v.([]any); ok {
			return l
		}
	}
	return nil
}

// scalarText renders a JSON scalar the way it reads in a message.
func scalarText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
