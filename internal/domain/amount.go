package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value read from loosely typed customer data.
// It accepts JSON numbers and localized strings ("12 500,50", "1.250,00 kr").
// Decoding never fails: unreadable input is kept in Raw and flagged Invalid
// so the normalizer can skip the record and report it.
type Amount struct {
	Value   decimal.Decimal
	Raw     string
	Invalid bool
}

// NewAmount creates an Amount from a float.
func NewAmount(v float64) Amount {
	return Amount{Value: decimal.NewFromFloat(v)}
}

// AmountFromString parses a localized amount string.
func AmountFromString(s string) Amount {
	d, err := ParseAmount(s)
	if err != nil {
		return Amount{Raw: s, Invalid: true}
	}
	return Amount{Value: d, Raw: s}
}

// Float returns the amount as float64 and whether it is usable.
func (a Amount) Float() (float64, bool) {
	if a.Invalid {
		return 0, false
	}
	return a.Value.InexactFloat64(), true
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = Amount{Raw: string(data), Invalid: true}
			return nil
		}
		if strings.TrimSpace(s) == "" {
			*a = Amount{}
			return nil
		}
		*a = AmountFromString(s)
		return nil
	}

	d, err := decimal.NewFromString(string(data))
	if err != nil {
		*a = Amount{Raw: string(data), Invalid: true}
		return nil
	}
	*a = Amount{Value: d}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Invalid {
		return json.Marshal(a.Raw)
	}
	return []byte(a.Value.String()), nil
}

// String returns the canonical decimal representation, or the raw text when invalid.
func (a Amount) String() string {
	if a.Invalid {
		return a.Raw
	}
	return a.Value.String()
}

// ParseAmount parses amounts written with either decimal convention.
// Grouping spaces, currency symbols and codes are ignored. When both
// separators appear, the last one is the decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-', r == '+':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '\'', r == '\u00a0', r == '\u202f':
			// grouping
		case unicode.IsLetter(r), unicode.IsSymbol(r):
			// currency
		default:
			return decimal.Zero, fmt.Errorf("invalid character %q in amount %q", r, s)
		}
	}

	clean := b.String()
	if clean == "" {
		return decimal.Zero, fmt.Errorf("no digits in amount %q", s)
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(clean, ",") > 1 {
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = strings.Replace(clean, ",", ".", 1)
		}
	case strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}
