package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a server-owned entity. The API sends ids as JSON numbers or
// strings depending on the resource; both decode to the same ID.
type ID string

// String returns the id as a string.
func (id ID) String() string { return string(id) }

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool { return id == "" }

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integer ids back as numbers so the API receives the
// type it sent. Anything else is written as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if isCanonicalInt(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func isCanonicalInt(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
