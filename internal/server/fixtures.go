// Package server implements a canned-reply dispatch-console peer: it
// answers every dialect request with fixture data loaded from disk,
// standing in for the production routing/role/catalog backend so a
// client can be exercised end-to-end against deterministic responses.
package server

import (
	"encoding/json"
	"fmt"
	"os"
)

// Fragment is one named fragment of a multi-fragment catalog reply. Name
// is carried over from the original's per-entry dict key purely for
// fixture readability; it is never placed on the wire.
type Fragment struct {
	Name    string `json:"name"`
	Payload string `json:"payload"`
}

// Fixtures is the server's canned-reply set, one entry per dialect
// subject. The original iterates a JSON object's keys in insertion order
// to produce one fragment per entry; Go's map decoding does not preserve
// that order, so the multi-fragment subjects here are JSON arrays
// instead - the fragment's wire position is exactly its array index,
// which is what the client's X-Fragment-Index/-Total pair observes.
type Fixtures struct {
	RoleInfo string     `json:"vcu_register"`
	Login    string     `json:"vcu_login"`
	Logout   string     `json:"vcu_logout"`
	Phone    []Fragment `json:"vcu_phone"`
	Frequency []Fragment `json:"vcu_frequency"`
	Radio    []Fragment `json:"vcu_radio"`
	Function []Fragment `json:"vcu_function"`
	AllFreq  []Fragment `json:"all_freq"`
}

// LoadFixtures reads and parses the canned-reply file at path.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server: read fixtures %s: %w", path, err)
	}
	var f Fixtures
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("server: parse fixtures %s: %w", path, err)
	}
	return &f, nil
}
