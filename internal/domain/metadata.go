// internal/domain/metadata.go
package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Scalar is a metadata value: a string, a number or a bool.
type Scalar struct {
	str  *string
	num  *float64
	flag *bool
}

func String(s string) Scalar { return Scalar{str: &s} }

func Number(f float64) Scalar { return Scalar{num: &f} }

func Bool(b bool) Scalar { return Scalar{flag: &b} }

func (s Scalar) IsZero() bool { return s.str == nil && s.num == nil && s.flag == nil }

// Value returns the underlying Go value (string, float64, bool or nil).
func (s Scalar) Value() any {
	switch {
	case s.str != nil:
		return *s.str
	case s.num != nil:
		return *s.num
	case s.flag != nil:
		return *s.flag
	}
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Value())
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		*s = String(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return err
		}
		*s = Number(f)
	case bool:
		*s = Bool(val)
	default:
		return fmt.Errorf("metadata values must be string, number or bool, got %T", v)
	}
	return nil
}

// Metadata is a flat map of scalar annotations stored as JSONB.
type Metadata map[string]Scalar

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("metadata: unsupported scan source")
	}
	out := Metadata{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	*m = out
	return nil
}

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
