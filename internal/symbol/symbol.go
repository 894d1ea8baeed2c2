// Package symbol handles equity ticker normalization and validation.
package symbol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// tickerRegex matches plain equity tickers like AAPL, GOOG, BRK.B.
var tickerRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,9}(\.[A-Z])?$`)

// ErrInvalidSymbol is returned for tickers that do not look like an
// equity symbol after normalization.
var ErrInvalidSymbol = errors.New("symbol: invalid ticker")

// Normalize trims and uppercases a raw ticker and validates its format.
// Trades and quotes always operate on the normalized form, so "aapl "
// and "AAPL" address the same position.
func Normalize(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if !tickerRegex.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
	}
	return s, nil
}
