package memorystore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/fyrsmithlabs/roomgate/internal/category"
)

// Reserved keys are owned by the store; metadata cannot override them.
const (
	KeyID        = "id"
	KeyText      = "text"
	KeyTimestamp = "timestamp"
	KeyCategory  = "category"
)

func isReserved(key string) bool {
	switch key {
	case KeyID, KeyText, KeyTimestamp, KeyCategory:
		return true
	}
	return false
}

// Entry is one retained exchange. On disk it is a flat JSON object: the
// reserved fields followed by the caller's metadata keys.
type Entry struct {
	ID        string
	Text      string
	Timestamp time.Time
	Category  category.Category
	Metadata  map[string]any
}

// MarshalJSON writes reserved fields first, then metadata in key order.
func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("metadata %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := write(KeyID, e.ID); err != nil {
		return nil, err
	}
	if err := write(KeyText, e.Text); err != nil {
		return nil, err
	}
	if err := write(KeyTimestamp, e.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
		return nil, err
	}
	if err := write(KeyCategory, e.Category); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		if !isReserved(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, e.Metadata[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON splits a flat record back into reserved fields and metadata.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Entry
	if v, ok := raw[KeyID]; ok {
		if err := json.Unmarshal(v, &out.ID); err != nil {
			return fmt.Errorf("field %s: %w", KeyID, err)
		}
	}
	if v, ok := raw[KeyText]; ok {
		if err := json.Unmarshal(v, &out.Text); err != nil {
			return fmt.Errorf("field %s: %w", KeyText, err)
		}
	}
	if v, ok := raw[KeyCategory]; ok {
		if err := json.Unmarshal(v, &out.Category); err != nil {
			return fmt.Errorf("field %s: %w", KeyCategory, err)
		}
	}
	if v, ok := raw[KeyTimestamp]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("field %s: %w", KeyTimestamp, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("field %s: %w", KeyTimestamp, err)
		}
		out.Timestamp = ts.UTC()
	}

	for k, v := range raw {
		if isReserved(k) {
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		if out.Metadata == nil {
			out.Metadata = make(map[string]any)
		}
		out.Metadata[k] = value
	}

	*e = out
	return nil
}
