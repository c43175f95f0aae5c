package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Ref is a reference field as clients send it: either a bare id ("abc…")
// or an expanded record ({"id": "abc…", ...} / {"_id": "abc…", ...}).
// Decoding normalizes both shapes to ID; Expanded only records which one arrived.
type Ref struct {
	ID       uuid.UUID
	Expanded bool
}

var ErrEmptyRef = errors.New("empty reference")

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*r = Ref{}
			return nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid reference id %q: %w", s, err)
		}
		*r = Ref{ID: id}
		return nil
	case '{':
		var obj struct {
			ID      string `json:"id"`
			MongoID string `json:"_id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		raw := obj.ID
		if raw == "" {
			raw = obj.MongoID
		}
		if raw == "" {
			return ErrEmptyRef
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid reference id %q: %w", raw, err)
		}
		*r = Ref{ID: id, Expanded: true}
		return nil
	default:
		return fmt.Errorf("reference must be an id string or an object, got %s", string(data))
	}
}

// MarshalJSON always emits the normalized id form.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.ID == uuid.Nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID.String())
}

func (r Ref) IsZero() bool { return r.ID == uuid.Nil }

func NewRef(id uuid.UUID) Ref { return Ref{ID: id} }
