package pricing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// optionSep separates an option's name from its surcharge: "Cheddar=+2.00".
const optionSep = "=+"

// leadingNumber matches the numeric prefix of a surcharge, so "3.00 extra"
// still reads as 3.00.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseOptionValue returns the surcharge encoded in an option token, or zero
// when the token has no "=+" part or the amount does not parse.
func ParseOptionValue(token string) decimal.Decimal {
	_, rest, ok := strings.Cut(token, optionSep)
	if !ok {
		return decimal.Zero
	}
	num := leadingNumber.FindString(strings.TrimSpace(rest))
	if num == "" {
		return decimal.Zero
	}
	if num[0] == '.' {
		num = "0" + num
	}
	v, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// ParseOptionName returns the display name of an option token.
func ParseOptionName(token string) string {
	name, _, _ := strings.Cut(token, optionSep)
	return strings.TrimSpace(name)
}

// SplitOptions splits a product's comma separated options field into tokens.
func SplitOptions(field string) []string {
	var tokens []string
	for _, t := range strings.Split(field, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// DefaultOption returns the token preselected when a product is added to an
// order: the first one listed, or "" when the product has no options.
func DefaultOption(field string) string {
	tokens := SplitOptions(field)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}

// HasOption reports whether token is one of the options listed in field.
// Tokens are compared by name so a changed surcharge still matches.
func HasOption(field, token string) bool {
	name := ParseOptionName(token)
	for _, t := range SplitOptions(field) {
		if ParseOptionName(t) == name {
			return true
		}
	}
	return false
}

// ParseAmount reads a money or percentage field typed by an operator.
// Blank or malformed input is zero; a decimal comma ("5,50") is accepted.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// ParseQuantity reads a quantity field; anything below 1 or unparsable is 1.
func ParseQuantity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
