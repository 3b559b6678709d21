package videocfg

import (
	"encoding/json"
)

// Trace captures provenance for one key across the scoped layers that
// produced the effective value.
type Trace struct {
	Key       string       `json:"key"`
	Effective any          `json:"effective,omitempty"`
	Resolved  bool         `json:"resolved"`
	Layers    []Provenance `json:"layers"`
}

// Provenance details how a specific scope contributed to a traced key.
type Provenance struct {
	Scope  Scope  `json:"scope"`
	Source string `json:"source,omitempty"`
	Value  any    `json:"value,omitempty"`
	Found  bool   `json:"found"`
}

// Winner returns the strongest provenance entry that holds the key.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
