package utils

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumberBR formats a quantity the pt-BR way: "." groups thousands and
// "," separates decimals. Example: 12345.5 with 2 decimals -> "12.345,50".
func FormatNumberBR(amount float64, decimals int) string {
	negative := amount < 0
	amount = math.Abs(amount)

	formatted := strconv.FormatFloat(amount, 'f', decimals, 64)
	integerPart, decimalPart, _ := strings.Cut(formatted, ".")

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	out := strings.Join(groups, ".")
	if decimalPart != "" {
		out += "," + decimalPart
	}
	if negative && strings.Trim(out, "0.,") != "" {
		out = "-" + out
	}
	return out
}
