package cart

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Extra is an added option. ID is empty for rows written before ids were captured.
type Extra struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Customization records what the customer changed on a line.
// Removed holds ingredient ids, or names for legacy rows.
type Customization struct {
	Removed []string `json:"removed"`
	Added   []Extra  `json:"added"`
}

// IsRemoved matches a base ingredient against Removed by id or case-insensitive name.
func (c Customization) IsRemoved(id, name string) bool {
	for _, r := range c.Removed {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if r == id || strings.EqualFold(r, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// ExtrasTotal sums the unit prices captured on the added extras.
func (c Customization) ExtrasTotal() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.Added {
		total = total.Add(e.UnitPrice)
	}
	return total
}

func (c Customization) IsZero() bool {
	return len(c.Removed) == 0 && len(c.Added) == 0
}

func (c Customization) Clone() Customization {
	out := Customization{}
	if c.Removed != nil {
		out.Removed = append([]string(nil), c.Removed...)
	}
	if c.Added != nil {
		out.Added = append([]Extra(nil), c.Added...)
	}
	return out
}

// legacyExtra accepts both the current keys and the ones older clients wrote (nom, prix).
type legacyExtra struct {
	ID        json.RawMessage  `json:"id"`
	Name      string           `json:"name"`
	Nom       string           `json:"nom"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Prix      *decimal.Decimal `json:"prix"`
}

// UnmarshalJSON tolerates null, an empty array, missing keys and extras stored as bare names.
func (c *Customization) UnmarshalJSON(data []byte) error {
	*c = Customization{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || trimmed[0] == '[' {
		return nil
	}

	var raw struct {
		Removed []json.RawMessage `json:"removed"`
		Added   []json.RawMessage `json:"added"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("cart: decode customization: %w", err)
	}

	for _, r := range raw.Removed {
		if s, ok := scalarString(r); ok && s != "" {
			c.Removed = append(c.Removed, s)
		}
	}
	for _, a := range raw.Added {
		if s, ok := scalarString(a); ok {
			if s != "" {
				c.Added = append(c.Added, Extra{Name: s, UnitPrice: decimal.Zero})
			}
			continue
		}
		var le legacyExtra
		if err := json.Unmarshal(a, &le); err != nil {
			return fmt.Errorf("cart: decode extra: %w", err)
		}
		e := Extra{Name: le.Name, UnitPrice: decimal.Zero}
		if e.Name == "" {
			e.Name = le.Nom
		}
		if id, ok := scalarString(le.ID); ok {
			e.ID = id
		}
		switch {
		case le.UnitPrice != nil:
			e.UnitPrice = *le.UnitPrice
		case le.Prix != nil:
			e.UnitPrice = *le.Prix
		}
		c.Added = append(c.Added, e)
	}
	return nil
}

// scalarString reads a JSON string or number as text.
func scalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	case '{', '[':
		return "", false
	default:
		return string(raw), true
	}
}

// Value stores the customization as a JSON column.
func (c Customization) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Customization) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = Customization{}
		return nil
	case []byte:
		return c.UnmarshalJSON(v)
	case string:
		return c.UnmarshalJSON([]byte(v))
	default:
		return errors.New("cart: unsupported customization column type")
	}
}
