package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from the environment using `env` struct tags. Defaults
// come from `envDefault`; validation is the caller's concern.
//
//	type SearchConfig struct {
//	    MinQueryLength int      `env:"MIN_QUERY_LENGTH" envDefault:"2"`
//	    Brokers        []string `env:"KAFKA_BROKERS" envSeparator:","`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
