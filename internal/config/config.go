// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix namespaces every variable: STEP_INTERVAL is read from
// GRIDTUTOR_STEP_INTERVAL.
const Prefix = "GRIDTUTOR"

// Config holds the runtime settings. Tutor backend credentials are not part
// of it; the llm client resolves those itself.
type Config struct {
	StepInterval   time.Duration `envconfig:"STEP_INTERVAL" default:"600ms"`
	SettleDelay    time.Duration `envconfig:"SETTLE_DELAY" default:"400ms"`
	ChatLimit      int           `envconfig:"CHAT_LIMIT" default:"10"`
	QuietBelow     int           `envconfig:"QUIET_BELOW" default:"3"`
	StepwiseRepeat bool          `envconfig:"STEPWISE_REPEAT" default:"false"`
	ContentPath    string        `envconfig:"CONTENT_PATH"`
	Lesson         string        `envconfig:"LESSON" default:"k-l1"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFile        string        `envconfig:"LOG_FILE"`
	TranscriptDir  string        `envconfig:"TRANSCRIPT_DIR"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
//
// Expectations:
//   - Rejects negative durations
//   - Rejects a chat limit below 2 (goal entry plus one)
//   - Rejects a negative quiet threshold
//   - Rejects an empty lesson id
func (c *Config) Validate() error {
	switch {
	case c.StepInterval < 0:
		return fmt.Errorf("config: %s_STEP_INTERVAL must not be negative, got %s", Prefix, c.StepInterval)
	case c.SettleDelay < 0:
		return fmt.Errorf("config: %s_SETTLE_DELAY must not be negative, got %s", Prefix, c.SettleDelay)
	case c.ChatLimit < 2:
		return fmt.Errorf("config: %s_CHAT_LIMIT must be at least 2, got %d", Prefix, c.ChatLimit)
	case c.QuietBelow < 0:
		return fmt.Errorf("config: %s_QUIET_BELOW must not be negative, got %d", Prefix, c.QuietBelow)
	case c.Lesson == "":
		return fmt.Errorf("config: %s_LESSON must not be empty", Prefix)
	}
	return nil
}

// LogPath returns LogFile, or gridtutor.log under the user cache directory.
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "gridtutor", "gridtutor.log")
}
