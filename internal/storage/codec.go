package storage

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Stored records are gob-encoded: every table holds exactly one Go type, and
// readers and writers always agree on it.

func marshallEntry(entry any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}
	return buf.Bytes(), nil
}

func unmarshallEntry[T any](key []byte, val []byte) (*T, error) {
	entry := new(T)
	if err := gob.NewDecoder(bytes.NewReader(val)).Decode(entry); err != nil {
		return nil, fmt.Errorf("failed to decode entry with key %x: %w", key, err)
	}
	return entry, nil
}
