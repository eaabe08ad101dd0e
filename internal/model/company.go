// Package model holds the company records shared by the sources, the
// correlation step and the reports.
package model

import "strings"

// Company is one earnings-calendar row as reported by a source.
// Identity is the ticker symbol; Name is display data only and may be
// empty when a source lists symbols without names.
type Company struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// NewCompany trims surrounding whitespace from both fields. Symbols are
// kept as-is otherwise: matching across sources is exact.
func NewCompany(symbol, name string) Company {
	return Company{
		Symbol: strings.TrimSpace(symbol),
		Name:   strings.TrimSpace(name),
	}
}

// Valid reports whether the company carries a usable symbol.
func (c Company) Valid() bool {
	return c.Symbol != ""
}

// Candidate is a company that appeared on at least the required number of
// distinct sources for the target day.
type Candidate struct {
	Company
	References int `json:"references"`
}
