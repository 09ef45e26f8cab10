package main

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "VSH"

// envConfig holds runner options an operator would rather set once in the
// environment than repeat as flags on every invocation, mirroring how the
// rest of the pack wires envconfig alongside an explicit flag set.
type envConfig struct {
	NoUnset bool          `envconfig:"NOUNSET" default:"false"`
	ErrExit bool          `envconfig:"ERREXIT" default:"false"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"0"`
}

func loadEnvConfig() (*envConfig, error) {
	c := &envConfig{}
	if err := envconfig.Process(envPrefix, c); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	return c, nil
}
