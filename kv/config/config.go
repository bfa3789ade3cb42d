package config

import (
	"fmt"
	"os"
	"time"
)

// Config drives the txn-demo binary: how many records to seed, which
// concurrency-control mode to run, and the pauses that widen the contention
// window between the workers.
type Config struct {
	LogLevel string `toml:"log-level"`
	// Mode is "pessimistic" or "optimistic".
	Mode       string `toml:"mode"`
	EntryCount int    `toml:"entry-count"`
	// TxnTimeout bounds each pessimistic lock wait.
	TxnTimeout  string `toml:"txn-timeout"`
	UpdatePause string `toml:"update-pause"`
	CommitPause string `toml:"commit-pause"`
	// MaxRetries bounds optimistic restarts, 0 retries until commit.
	MaxRetries int `toml:"max-retries"`
	// Deposits is the amount each concurrent worker adds to every record.
	// Workers alternate sweep direction to provoke conflicts.
	Deposits []float64 `toml:"deposits"`
}

var DefaultConf = Config{
	LogLevel:    getLogLevel(),
	Mode:        "pessimistic",
	EntryCount:  10,
	TxnTimeout:  "3s",
	UpdatePause: "10ms",
	CommitPause: "2s",
	MaxRetries:  0,
	Deposits:    []float64{100, 200},
}

func (c *Config) Validate() error {
	if c.Mode != "pessimistic" && c.Mode != "optimistic" {
		return fmt.Errorf("mode must be pessimistic or optimistic, got %q", c.Mode)
	}
	if c.EntryCount < 2 {
		return fmt.Errorf("entry-count must be at least 2, got %d", c.EntryCount)
	}
	if len(c.Deposits) == 0 {
		return fmt.Errorf("at least one deposit amount is required")
	}
	for _, field := range []string{c.TxnTimeout, c.UpdatePause, c.CommitPause} {
		if _, err := time.ParseDuration(field); err != nil {
			return fmt.Errorf("invalid duration %q: %v", field, err)
		}
	}
	return nil
}

// ParseDuration parses a duration that Validate has already checked.
func ParseDuration(d string) time.Duration {
	dur, err := time.ParseDuration(d)
	if err != nil {
		panic(err)
	}
	return dur
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}
