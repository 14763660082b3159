package mapview

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PopupEntry is one "key: value" row.
type PopupEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Popup is bound to a single feature of the data layer.
type Popup struct {
	FeatureIndex int          `json:"featureIndex" doc:"Index of the feature in the collection"`
	Entries      []PopupEntry `json:"entries" doc:"Property rows in source order"`
}

// Lines returns the popup content as "key: value" strings.
func (p Popup) Lines() []string {
	lines := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		lines[i] = e.Key + ": " + e.Value
	}
	return lines
}

// collectPopups reads feature properties straight from the raw collection
// so entries keep the order the properties were written in.
func collectPopups(data []byte) ([]Popup, error) {
	var raw struct {
		Features []struct {
			Properties json.RawMessage `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var popups []Popup
	for i, f := range raw.Features {
		entries, err := orderedEntries(f.Properties)
		if err != nil {
			return nil, fmt.Errorf("feature %d properties: %w", i, err)
		}
		if len(entries) == 0 {
			continue
		}
		popups = append(popups, Popup{FeatureIndex: i, Entries: entries})
	}
	return popups, nil
}

func orderedEntries(props json.RawMessage) ([]PopupEntry, error) {
	props = bytes.TrimSpace(props)
	if len(props) == 0 || bytes.Equal(props, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(props))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var entries []PopupEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		entries = append(entries, PopupEntry{Key: key, Value: valueText(value)})
	}
	return entries, nil
}

// valueText renders a property value: strings unquoted, everything else as
// compact JSON exactly as written.
func valueText(v json.RawMessage) string {
	if len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}
