package evm

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// unitDecimals maps denomination names to their power of ten
var unitDecimals = map[string]int{
	"wei":   0,
	"gwei":  9,
	"ether": 18,
}

// ParseUnits converts a decimal string into an integer scaled by 10^decimals.
// "1000000" with 18 decimals is 1000000 * 10^18; "1.5" with 6 is 1500000.
func ParseUnits(value string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("negative decimals: %d", decimals)
	}

	s := strings.TrimSpace(value)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if s == "" || s[0] == '-' || s[0] == '+' {
		return nil, fmt.Errorf("invalid amount %q", value)
	}

	whole, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", value, decimals)
	}
	if whole == "" {
		whole = "0"
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if negative {
		n.Neg(n)
	}
	return n, nil
}

// ParseAmount accepts plain integers, scientific notation ("1000000e18") and
// denominated amounts ("1.5 ether", "20 gwei").
func ParseAmount(value string) (*big.Int, error) {
	s := strings.TrimSpace(value)

	if num, unit, ok := strings.Cut(s, " "); ok {
		decimals, known := unitDecimals[strings.ToLower(strings.TrimSpace(unit))]
		if !known {
			return nil, fmt.Errorf("unknown unit %q in %q", unit, value)
		}
		return ParseUnits(num, decimals)
	}

	if num, exp, ok := strings.Cut(strings.ToLower(s), "e"); ok {
		decimals, err := strconv.Atoi(exp)
		if err != nil {
			return nil, fmt.Errorf("invalid exponent in %q", value)
		}
		return ParseUnits(num, decimals)
	}

	return ParseUnits(s, 0)
}
