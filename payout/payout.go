// Package payout maps finishing positions to prize money.
package payout

import (
	"errors"
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidEntry = errors.New("invalid payout entry")

// Table maps a 1-based finishing position to its payout. Positions not in
// the table pay nothing. A Table is read-only once handed to a simulation.
type Table map[int]float64

// Amount returns the payout for finishing position rank.
func (t Table) Amount(rank int) float64 {
	return t[rank]
}

// Clone returns an independent copy of t.
func (t Table) Clone() Table {
	if t == nil {
		return Table{}
	}
	return maps.Clone(t)
}

// Validate rejects non-positive ranks and negative amounts.
func (t Table) Validate() error {
	for rank, amt := range t {
		if rank < 1 {
			return fmt.Errorf("%w: rank %d", ErrInvalidEntry, rank)
		}
		if amt < 0 {
			return fmt.Errorf("%w: rank %d pays %v", ErrInvalidEntry, rank, amt)
		}
	}
	return nil
}

// Total is the sum of all payouts in the table.
func (t Table) Total() float64 {
	var tot float64
	for _, amt := range t {
		tot += amt
	}
	return tot
}

// FromPercentages builds a table from a total purse and the percentage of
// it (0-100) paid to each finishing position.
func FromPercentages(purse float64, percentages map[int]float64) (Table, error) {
	if purse < 0 {
		return nil, fmt.Errorf("%w: negative purse %v", ErrInvalidEntry, purse)
	}
	t := make(Table, len(percentages))
	for rank, pct := range percentages {
		if pct < 0 || pct > 100 {
			return nil, fmt.Errorf("%w: rank %d percentage %v", ErrInvalidEntry, rank, pct)
		}
		t[rank] = purse * pct / 100
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// File is the on-disk purse description. Either Amounts is given
// directly, or Total and Percentages are.
type File struct {
	Total       float64         `yaml:"total"`
	Amounts     map[int]float64 `yaml:"amounts,omitempty"`
	Percentages map[int]float64 `yaml:"percentages,omitempty"`
}

// Table converts the file into a payout table. A non-zero purse overrides
// the file's total when percentages are used.
func (f *File) Table(purse float64) (Table, error) {
	switch {
	case len(f.Amounts) > 0 && len(f.Percentages) > 0:
		return nil, errors.New("purse file must specify amounts or percentages, not both")
	case len(f.Amounts) > 0:
		t := Table(f.Amounts)
		if err := t.Validate(); err != nil {
			return nil, err
		}
		return t, nil
	case len(f.Percentages) > 0:
		total := f.Total
		if purse > 0 {
			total = purse
		}
		return FromPercentages(total, f.Percentages)
	}
	return Table{}, nil
}

// Parse reads a purse description from YAML.
func Parse(data []byte, purse float64) (Table, error) {
	f := &File{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing purse: %w", err)
	}
	return f.Table(purse)
}

// Load reads a purse description from a YAML file.
func Load(path string, purse float64) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, purse)
}
