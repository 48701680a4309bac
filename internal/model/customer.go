// internal/model/customer.go
package model

import (
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"

	appErrors "github.com/unclebandit/customer-service/internal/errors"
)

// Customer is a record identified by ID. Every other field is opaque payload
// that is stored and returned verbatim.
type Customer struct {
	ID      string
	Payload map[string]json.RawMessage
}

// MarshalJSON flattens the payload next to the id: {"id": "...", "name": "Ana"}.
func (c Customer) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Payload)+1)
	maps.Copy(out, c.Payload)

	id, err := json.Marshal(c.ID)
	if err != nil {
		return nil, err
	}
	out["id"] = id

	return json.Marshal(out)
}

// UnmarshalJSON accepts only objects that can be written back unchanged: the
// input must be valid UTF-8 and every value must encode again.
func (c *Customer) UnmarshalJSON(data []byte) error {
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: invalid UTF-8", appErrors.ErrInvalidCustomer)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrInvalidCustomer, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: expected a JSON object", appErrors.ErrInvalidCustomer)
	}

	c.ID = ""
	if raw, ok := fields["id"]; ok {
		delete(fields, "id")
		if string(raw) != "null" {
			if err := json.Unmarshal(raw, &c.ID); err != nil {
				return fmt.Errorf("%w: id must be a string", appErrors.ErrInvalidCustomer)
			}
		}
	}
	c.Payload = fields

	return c.validatePayload()
}

// Validate reports, wrapped in ErrInvalidCustomer, an id that cannot be
// addressed as a single path segment or a payload value that cannot be encoded.
func (c Customer) Validate() error {
	if strings.Contains(c.ID, "/") {
		return fmt.Errorf("%w: id must not contain '/'", appErrors.ErrInvalidCustomer)
	}
	return c.validatePayload()
}

func (c Customer) validatePayload() error {
	for key, value := range c.Payload {
		if !utf8.Valid(value) {
			return fmt.Errorf("%w: field %q is not valid UTF-8", appErrors.ErrInvalidCustomer, key)
		}
		if _, err := json.Marshal(value); err != nil {
			return fmt.Errorf("%w: field %q: %v", appErrors.ErrInvalidCustomer, key, err)
		}
	}
	return nil
}

// PayloadJSON encodes the payload alone, without the id. A nil payload encodes as {}.
func (c Customer) PayloadJSON() ([]byte, error) {
	if c.Payload == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Payload)
}

// SetPayloadJSON replaces the payload with the decoded object. An "id" key is dropped.
func (c *Customer) SetPayloadJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode customer payload: %w", err)
	}
	delete(fields, "id")
	c.Payload = fields
	return nil
}

// Clone returns a deep copy, so the copy shares no memory with c.
func (c Customer) Clone() Customer {
	out := Customer{ID: c.ID}
	if c.Payload != nil {
		out.Payload = make(map[string]json.RawMessage, len(c.Payload))
		for k, v := range c.Payload {
			out.Payload[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}
