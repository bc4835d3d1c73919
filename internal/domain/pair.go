// Package domain defines core data structures used throughout the backtester.
package domain

import (
	"fmt"
	"strings"
)

// DefaultQuote is the quote currency every simulated ledger is accounted in.
const DefaultQuote = "USD"

// Pair asset/quote pair of a simulation.
type Pair struct {
	// From base asset symbol.
	From string
	// To quote currency symbol.
	To string
}

// ParsePair parses "BTC_USD" or a bare asset symbol ("BTC", quoted in USD).
func ParsePair(s string) (Pair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Pair{}, fmt.Errorf("empty pair")
	}

	elements := strings.Split(s, "_")
	switch len(elements) {
	case 1:
		return Pair{From: elements[0], To: DefaultQuote}, nil
	case 2:
		if elements[0] == "" || elements[1] == "" {
			return Pair{}, fmt.Errorf("invalid pair %q", s)
		}
		return Pair{From: elements[0], To: elements[1]}, nil
	default:
		return Pair{}, fmt.Errorf("invalid pair %q", s)
	}
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated exchange symbol.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.From, p.To)
}
