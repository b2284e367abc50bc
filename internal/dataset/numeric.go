package dataset

import (
	"math"
	"strconv"
	"strings"
)

var nan = math.NaN()

// NumberFormat describes decimal and thousands separators. A zero
// DecimalSeparator auto-detects per value.
type NumberFormat struct {
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// ParseNumber parses s as a float, tolerating percent signs, non-breaking
// spaces and locale separators. Empty cells are not numbers.
//
// Without a DecimalSeparator the last of ',' and '.' is the decimal mark. A
// lone comma is a decimal comma unless it groups thousands ("1,234").
func ParseNumber(s string, nf NumberFormat) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := nf.DecimalSeparator
	thou := nf.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0 && commaGroupsThousands(raw, cpos):
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// commaGroupsThousands reports whether the commas in a dot-free value are
// thousands groupings: several commas, or one comma followed by exactly three
// digits after a nonzero integer part ("1,234" but not "0,125" or "1,5").
func commaGroupsThousands(raw string, last int) bool {
	if strings.Count(raw, ",") > 1 {
		return true
	}
	frac := raw[last+1:]
	if len(frac) != 3 || strings.Trim(frac, "0123456789") != "" {
		return false
	}
	intPart := strings.TrimLeft(raw[:last], "+-")
	return intPart != "" && strings.Trim(intPart, "0") != ""
}

// ParseYear parses an integral year such as "2021" or "2021.0".
func ParseYear(s string) (int, bool) {
	raw := strings.TrimSpace(s)
	if y, err := strconv.Atoi(raw); err == nil {
		return y, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
