package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Symbol is a validated ticker: 1-5 uppercase alphanumerics.
type Symbol string

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,5}$`)

func (s Symbol) String() string {
	return string(s)
}

// ParseSymbol uppercases and validates a raw ticker string.
func ParseSymbol(raw string) (Symbol, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" {
		return "", fmt.Errorf("symbol cannot be empty")
	}
	if !symbolPattern.MatchString(upper) {
		return "", fmt.Errorf("invalid symbol %q: must be 1-5 uppercase letters or digits", raw)
	}
	return Symbol(upper), nil
}

// IndexSymbols are always part of the stream subscription set.
var IndexSymbols = []string{"SPY", "QQQ", "IWM"}
