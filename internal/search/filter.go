package search

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/Rainelz/booko/internal/playtomic"
)

// FilterFields keeps only slots priced at or below maxPriceUnits and
// drops fields left with no slots. Slots whose price string cannot be
// parsed are dropped, never fatal.
func FilterFields(fields []playtomic.AvailabilityResource, maxPriceUnits float64) []RawField {
	out := make([]RawField, 0, len(fields))

	for _, field := range fields {
		slots := make([]Slot, 0, len(field.Slots))
		for _, raw := range field.Slots {
			amount, currency, err := parsePrice(raw.Price)
			if err != nil {
				continue
			}
			if amount > maxPriceUnits {
				continue
			}
			slots = append(slots, Slot{
				StartTime:       raw.StartTime,
				DurationMinutes: raw.Duration,
				PriceUnits:      amount,
				PriceCurrency:   currency,
			})
		}

		if len(slots) == 0 {
			continue
		}
		out = append(out, RawField{ResourceID: field.ResourceID, Slots: slots})
	}

	return out
}

// parsePrice splits a currency-tagged price string like "22 EUR",
// "EUR 22.5" or "30EUR" into amount and currency code.
func parsePrice(s string) (float64, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", fmt.Errorf("empty price")
	}

	var numeric, alpha strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r) || r == '.':
			numeric.WriteRune(r)
		case unicode.IsLetter(r):
			alpha.WriteRune(r)
		case unicode.IsSpace(r):
		default:
			return 0, "", fmt.Errorf("unexpected character %q in price %q", r, s)
		}
	}

	amount, err := strconv.ParseFloat(numeric.String(), 64)
	if err != nil {
		return 0, "", fmt.Errorf("price %q: %w", s, err)
	}

	return amount, strings.ToUpper(alpha.String()), nil
}
