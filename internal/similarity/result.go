package similarity

import (
	"bytes"
	"encoding/json"
)

// Match pairs a developer with their similarity to the query developer.
type Match struct {
	Developer string  `json:"developer"`
	Score     float64 `json:"score"`
}

// Result is a ranking in rank order, highest similarity first.
type Result []Match

// Developers returns the ranked developer identifiers.
func (r Result) Developers() []string {
	ids := make([]string, len(r))
	for i, m := range r {
		ids[i] = m.Developer
	}
	return ids
}

// Score returns the score for a developer in the result.
func (r Result) Score(developer string) (float64, bool) {
	for _, m := range r {
		if m.Developer == developer {
			return m.Score, true
		}
	}
	return 0, false
}

// MarshalJSON encodes the result as a JSON object whose key order is the rank order.
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Developer)
		if err != nil {
			return nil, err
		}
		score, err := json.Marshal(m.Score)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(score)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
