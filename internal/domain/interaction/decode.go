package interaction

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses a serialized {drugs, interactions} database and builds a
// validated catalog.
func Decode(data []byte) (*Catalog, error) {
	db, err := ParseDatabase(data)
	if err != nil {
		return nil, err
	}
	return NewCatalog(db)
}

// ParseDatabase parses a serialized database without validating references.
func ParseDatabase(data []byte) (*Database, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty drug database")
	}
	var db Database
	if err := json.Unmarshal(trimmed, &db); err != nil {
		return nil, fmt.Errorf("parse drug database: %w", err)
	}
	return &db, nil
}
