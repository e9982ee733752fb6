// Package field loads the golfers entered in a tournament.
package field

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/domino14/golfsim/skill"
)

// Entrant is a golfer as described in a field file. Index and StdDev are
// a prior prediction, replaced by an estimate from Rounds when there are
// enough of them.
type Entrant struct {
	ID     uint32        `yaml:"id"`
	Name   string        `yaml:"name"`
	Index  float64       `yaml:"index"`
	StdDev float64       `yaml:"std_dev"`
	Rounds []skill.Round `yaml:"rounds,omitempty"`
}

type Field struct {
	Tournament string    `yaml:"tournament"`
	Entrants   []Entrant `yaml:"golfers"`
}

// Competitor is a golfer ready to be simulated.
type Competitor struct {
	ID        uint32
	Name      string
	Index     float64
	StdDev    float64
	Estimated bool
}

func Parse(data []byte) (*Field, error) {
	f := &Field{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing field: %w", err)
	}
	seen := make(map[uint32]bool, len(f.Entrants))
	for _, e := range f.Entrants {
		if seen[e.ID] {
			return nil, fmt.Errorf("golfer %d entered twice", e.ID)
		}
		seen[e.ID] = true
	}
	if len(f.Entrants) == 0 {
		return nil, errors.New("field has no golfers")
	}
	return f, nil
}

func Load(path string) (*Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Competitors works out each golfer's scoring distribution as of the given
// date, preferring an estimate from their recent rounds.
func (f *Field) Competitors(asOf time.Time, opts skill.Options) []Competitor {
	out := make([]Competitor, 0, len(f.Entrants))
	for _, e := range f.Entrants {
		c := Competitor{ID: e.ID, Name: e.Name, Index: e.Index, StdDev: e.StdDev}
		if idx, sd, ok := skill.EstimateRounds(e.Rounds, asOf, opts); ok {
			c.Index, c.StdDev, c.Estimated = idx, sd, true
		} else if len(e.Rounds) > 0 {
			log.Info().Uint32("id", e.ID).Int("rounds", len(e.Rounds)).Msg("insufficient-rounds")
		}
		out = append(out, c)
	}
	return out
}

// Names maps golfer IDs to display names.
func (f *Field) Names() map[uint32]string {
	names := make(map[uint32]string, len(f.Entrants))
	for _, e := range f.Entrants {
		if e.Name != "" {
			names[e.ID] = e.Name
		}
	}
	return names
}
