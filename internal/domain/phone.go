package domain

import (
	"fmt"
	"strings"
)

// NormalizePhone reduces a phone number to its last 10 digits for reliable
// comparison: non-digits are stripped and a leading US country code 1 is
// dropped. Returns "" when the input contains no digits.
func NormalizePhone(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

// FormatPhone renders normalized digits as (NXX) NXX-XXXX when possible,
// otherwise returns the normalized digits unchanged.
func FormatPhone(number string) string {
	digits := NormalizePhone(number)
	if len(digits) != 10 {
		return digits
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}

// SamePhone reports whether two numbers refer to the same line after
// normalization. Two empty numbers are not considered the same.
func SamePhone(a, b string) bool {
	na, nb := NormalizePhone(a), NormalizePhone(b)
	return na != "" && na == nb
}

// LineNames maps normalized receiving-line numbers to friendly display names.
type LineNames map[string]string

// NewLineNames normalizes the keys of a raw number-to-name mapping.
func NewLineNames(raw map[string]string) LineNames {
	names := make(LineNames, len(raw))
	for number, name := range raw {
		if normalized := NormalizePhone(number); normalized != "" && name != "" {
			names[normalized] = name
		}
	}
	return names
}

// Display resolves a receiving-line number to display text: "Name (NXX)
// NXX-XXXX" when mapped, the formatted number when not, "" when the number
// is missing.
func (ln LineNames) Display(number string) string {
	normalized := NormalizePhone(number)
	if normalized == "" {
		return ""
	}
	formatted := FormatPhone(normalized)
	if formatted == "" {
		formatted = normalized
	}
	if name, ok := ln[normalized]; ok {
		return name + " " + formatted
	}
	return formatted
}
