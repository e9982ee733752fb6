package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/domino14/golfsim/montecarlo"
	"github.com/domino14/golfsim/skill"
)

const (
	ConfigNumSims        = "num-sims"
	ConfigNumRounds      = "num-rounds"
	ConfigCutRound       = "cut-round"
	ConfigCutLine        = "cut-line"
	ConfigThreads        = "threads"
	ConfigMemoryFraction = "memory-fraction"
	ConfigFieldFile      = "field-file"
	ConfigPurseFile      = "purse-file"
	ConfigPurseTotal     = "purse-total"
	ConfigTournament     = "tournament-name"
	ConfigDBPath         = "db-path"
	ConfigMaxRoundAge    = "max-round-age"
	ConfigMinRounds      = "min-rounds"
	ConfigDecayExp       = "decay-exp"
	ConfigDecayOffset    = "decay-offset"
	ConfigTop            = "top"
	ConfigSortBy         = "sort-by"
	ConfigHistogram      = "histogram"
	ConfigSave           = "save"
	ConfigDebug          = "debug"
	ConfigFile           = "config"
)

type Config struct {
	Sim            montecarlo.Params
	Threads        int
	MemoryFraction float64

	FieldFile  string
	PurseFile  string
	PurseTotal float64
	Tournament string
	DBPath     string

	Skill skill.Options

	Top       int
	SortBy    string
	Histogram bool
	Save      bool
	Debug     bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(ConfigNumSims, 100000)
	v.SetDefault(ConfigNumRounds, 4)
	v.SetDefault(ConfigCutRound, 2)
	v.SetDefault(ConfigCutLine, 50)
	v.SetDefault(ConfigThreads, 0)
	v.SetDefault(ConfigMemoryFraction, montecarlo.DefaultMemoryFraction)
	v.SetDefault(ConfigDBPath, "./local/golfmodel.db")
	v.SetDefault(ConfigMaxRoundAge, 730)
	v.SetDefault(ConfigMinRounds, 25)
	v.SetDefault(ConfigDecayExp, 1/1.01)
	v.SetDefault(ConfigDecayOffset, 100.0)
	v.SetDefault(ConfigTop, 30)
	v.SetDefault(ConfigSortBy, "earnings")
}

// FlagSet returns the command-line flags understood by Load.
func FlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("golfsim", pflag.ContinueOnError)
	fs.String(ConfigFile, "", "optional YAML config file")
	fs.Int(ConfigNumSims, 100000, "number of tournaments to simulate")
	fs.Int(ConfigNumRounds, 4, "rounds per tournament")
	fs.Int(ConfigCutRound, 2, "rounds played before the cut; 0 for no cut")
	fs.Int(ConfigCutLine, 50, "number of golfers who make the cut")
	fs.Int(ConfigThreads, 0, "worker threads; 0 uses every CPU")
	fs.Float64(ConfigMemoryFraction, montecarlo.DefaultMemoryFraction, "max fraction of system memory for sampled scores; 0 disables the check")
	fs.String(ConfigFieldFile, "", "YAML file listing the field")
	fs.String(ConfigPurseFile, "", "YAML file with the purse breakdown")
	fs.Float64(ConfigPurseTotal, 0, "total purse, applied to a percentage breakdown")
	fs.String(ConfigTournament, "", "tournament name to save results under")
	fs.String(ConfigDBPath, "./local/golfmodel.db", "SQLite database for saved predictions")
	fs.Int(ConfigMaxRoundAge, 730, "ignore rounds older than this many days")
	fs.Int(ConfigMinRounds, 25, "rounds a golfer must exceed for a skill estimate")
	fs.Float64(ConfigDecayExp, 1/1.01, "age decay exponent")
	fs.Float64(ConfigDecayOffset, 100, "age decay offset in days")
	fs.Int(ConfigTop, 30, "rows to print; 0 prints all")
	fs.String(ConfigSortBy, "earnings", "sort results by earnings, win, finish or cut")
	fs.Bool(ConfigHistogram, false, "print a histogram of the sort statistic across the field")
	fs.Bool(ConfigSave, false, "save results without prompting")
	fs.Bool(ConfigDebug, false, "debug logging")
	return fs
}

// Load builds the configuration from, in increasing precedence: defaults,
// the config file, GOLFSIM_ environment variables and command-line flags.
func (c *Config) Load(args []string) error {
	fs := FlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("GOLFSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	if path := v.GetString(ConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	c.Sim = montecarlo.Params{
		NumSims:   v.GetInt(ConfigNumSims),
		NumRounds: v.GetInt(ConfigNumRounds),
		CutRound:  v.GetInt(ConfigCutRound),
		CutLine:   v.GetInt(ConfigCutLine),
	}
	c.Threads = v.GetInt(ConfigThreads)
	c.MemoryFraction = v.GetFloat64(ConfigMemoryFraction)
	c.FieldFile = v.GetString(ConfigFieldFile)
	c.PurseFile = v.GetString(ConfigPurseFile)
	c.PurseTotal = v.GetFloat64(ConfigPurseTotal)
	c.Tournament = v.GetString(ConfigTournament)
	c.DBPath = v.GetString(ConfigDBPath)
	c.Skill = skill.Options{
		MaxAge:      time.Duration(v.GetInt(ConfigMaxRoundAge)) * 24 * time.Hour,
		MinRounds:   v.GetInt(ConfigMinRounds),
		DecayExp:    v.GetFloat64(ConfigDecayExp),
		DecayOffset: v.GetFloat64(ConfigDecayOffset),
	}
	c.Top = v.GetInt(ConfigTop)
	c.SortBy = v.GetString(ConfigSortBy)
	c.Histogram = v.GetBool(ConfigHistogram)
	c.Save = v.GetBool(ConfigSave)
	c.Debug = v.GetBool(ConfigDebug)
	return c.Validate()
}

func (c *Config) Validate() error {
	if err := c.Sim.Validate(); err != nil {
		return err
	}
	if c.FieldFile == "" {
		return errors.New("a field file is required")
	}
	if c.MemoryFraction < 0 || c.MemoryFraction > 1 {
		return fmt.Errorf("memory fraction %v out of range", c.MemoryFraction)
	}
	return nil
}
