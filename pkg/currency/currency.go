// Package currency turns noisy marketplace price text into normalized GBP
// amounts.
//
// The parser prefers a "£"-prefixed amount, then an amount followed by the
// "GBP" code, and finally falls back to reading digits out of the whole
// input. Separator handling assumes a lone comma is a decimal separator
// ("47,95") and any comma alongside a dot is a thousands separator
// ("1,299.00").
//
// A cleaned value with no decimal point that is 1000 or more is read as
// minor units ("4795" is £47.95). That means a whole-pound "1500" becomes
// £15.00; the ambiguity is accepted rather than guessed around.
package currency

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MaxGBP is the exclusive upper bound of an accepted price.
	MaxGBP = 10000.0

	penceThreshold = 1000.0

	// apiPenceThreshold applies to bare numeric API fields, which the
	// marketplace tends to report in minor units.
	apiPenceThreshold = 100.0
)

// Page text keeps &nbsp; and thin spaces as Unicode separators, so the
// whitespace classes include \p{Z} alongside ASCII \s.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)£[\s\p{Z}]*([0-9][0-9\s\p{Z},.]*)`),
	regexp.MustCompile(`(?i)([0-9][0-9\s\p{Z},.]*)[\s\p{Z}]*GBP\b`),
}

// FromText extracts the first currency-looking amount from text.
func FromText(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	for _, rx := range amountPatterns {
		m := rx.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, ok := NormalizeAmount(m[1]); ok {
			return v, true
		}
	}
	return NormalizeAmount(text)
}

// NormalizeAmount normalizes a bare amount string such as "1,299.00",
// "47,95", "4795" or "71.08 1" into GBP. It returns false for anything
// unparseable or outside (0, MaxGBP).
func NormalizeAmount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	var b strings.Builder
	dot := false
	for _, ch := range s {
		switch {
		case ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == '.' && !dot:
			b.WriteRune(ch)
			dot = true
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if !dot && v >= penceThreshold {
		v /= 100
	}
	return bounded(v)
}

// FromAPIFields reads a price out of a decoded catalog API item. String
// fields are parsed as text; bare numbers of 100 or more are read as pence.
func FromAPIFields(item map[string]any) (float64, bool) {
	if pwc, ok := item["price_with_currency"].(map[string]any); ok {
		if amt, ok := pwc["amount"].(string); ok {
			if v, ok := FromText(amt); ok {
				return v, true
			}
		}
	}

	if obj, ok := item["price"].(map[string]any); ok {
		if amt, ok := obj["amount"].(string); ok {
			if v, ok := FromText(amt); ok {
				return v, true
			}
		}
	}

	keys := []string{"price", "price_numeric", "total_item_price"}

	for _, k := range keys {
		if s, ok := item[k].(string); ok {
			if v, ok := FromText(s); ok {
				return v, true
			}
		}
	}

	for _, k := range keys {
		num, ok := item[k].(float64)
		if !ok {
			continue
		}
		if num >= apiPenceThreshold {
			return bounded(num / 100)
		}
		if v, ok := bounded(num); ok {
			return v, true
		}
	}

	return 0, false
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func bounded(v float64) (float64, bool) {
	if math.IsNaN(v) || v <= 0 || v >= MaxGBP {
		return 0, false
	}
	v = Round2(v)
	if v <= 0 || v >= MaxGBP {
		return 0, false
	}
	return v, true
}
