/*
The package config loads the configuration of the responder from a TOML file. Environment variables
override single settings of the file:

	MTR_TRACE              trace on (true) or off (false)
	MTR_TERMINATION_MODE   auto, local-close or peer-close
	MTR_LOG_LEVEL          a zerolog level name, e.g. debug
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/ftl/map-responder/dialogue"
	"github.com/ftl/map-responder/primitive"
)

var (
	ErrUnknownKey = errors.New("config: unknown key")
	ErrInvalid    = errors.New("config: invalid value")
)

// Names of the environment variables.
const (
	EnvTrace           = "MTR_TRACE"
	EnvTerminationMode = "MTR_TERMINATION_MODE"
	EnvLogLevel        = "MTR_LOG_LEVEL"
)

// Link kinds.
const (
	TCPLink    = "tcp"
	SerialLink = "serial"
)

// AutoPort lets the responder detect the serial port of the signaling board.
const AutoPort = "auto"

// Config is the complete configuration of the responder.
type Config struct {
	LocalModule     primitive.ModuleID       `toml:"local_module"`
	PeerModule      primitive.ModuleID       `toml:"peer_module"`
	Trace           bool                     `toml:"trace"`
	TerminationMode dialogue.TerminationMode `toml:"termination_mode"`
	Dialogues       int                      `toml:"dialogues"`
	Workers         int                      `toml:"workers"`

	Link    Link    `toml:"link"`
	Metrics Metrics `toml:"metrics"`
	Log     Log     `toml:"log"`
}

// Link describes how to reach the MAP module.
type Link struct {
	Kind     string `toml:"kind"`
	Address  string `toml:"address"`
	Port     string `toml:"port"`
	BaudRate uint   `toml:"baud_rate"`
}

// Metrics configures the /metrics endpoint.
type Metrics struct {
	// Address of the /metrics endpoint, empty to disable it.
	Address string `toml:"address"`
}

// Log configures the log output.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration that is used for everything the file does not set.
func Default() Config {
	return Config{
		LocalModule:     0x2d,
		PeerModule:      0x15,
		TerminationMode: dialogue.Auto,
		Dialogues:       dialogue.DefaultCapacity,
		Workers:         1,
		Link: Link{
			Kind:     TCPLink,
			Address:  "127.0.0.1:9101",
			Port:     AutoPort,
			BaudRate: 38400,
		},
		Metrics: Metrics{
			Address: ":9102",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads the configuration file at the given path, applies the environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	result := Default()
	meta, err := toml.DecodeFile(path, &result)
	if err != nil {
		return Config{}, fmt.Errorf("config: cannot load %s: %w", path, err)
	}
	return finish(result, meta, os.LookupEnv)
}

// Parse works like Load, but reads the configuration from the given text. Environment variables are
// looked up with the given function; pass nil to ignore them.
func Parse(text string, lookupEnv func(string) (string, bool)) (Config, error) {
	result := Default()
	meta, err := toml.Decode(text, &result)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return finish(result, meta, lookupEnv)
}

func finish(config Config, meta toml.MetaData, lookupEnv func(string) (string, bool)) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}

	if lookupEnv != nil {
		if err := config.applyEnv(lookupEnv); err != nil {
			return Config{}, err
		}
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	if value, ok := lookupEnv(EnvTrace); ok {
		trace, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, EnvTrace, err)
		}
		c.Trace = trace
	}
	if value, ok := lookupEnv(EnvTerminationMode); ok {
		mode, err := dialogue.ParseTerminationMode(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, EnvTerminationMode, err)
		}
		c.TerminationMode = mode
	}
	if value, ok := lookupEnv(EnvLogLevel); ok {
		c.Log.Level = strings.TrimSpace(value)
	}
	return nil
}

// Validate checks that all values are in range.
func (c Config) Validate() error {
	if c.Dialogues < 1 || c.Dialogues > dialogue.MaxCapacity {
		return fmt.Errorf("%w: dialogues must be in 1..%d, got %d", ErrInvalid, dialogue.MaxCapacity, c.Dialogues)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	}
	if _, ok := dialogue.TerminationModeByName[c.TerminationMode.String()]; !ok {
		return fmt.Errorf("%w: termination mode %d", ErrInvalid, c.TerminationMode)
	}

	switch c.Link.Kind {
	case TCPLink:
		if c.Link.Address == "" {
			return fmt.Errorf("%w: link.address is required for a tcp link", ErrInvalid)
		}
	case SerialLink:
		if c.Link.Port == "" {
			return fmt.Errorf("%w: link.port is required for a serial link", ErrInvalid)
		}
		if c.Link.BaudRate == 0 {
			return fmt.Errorf("%w: link.baud_rate must not be 0", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown link.kind %q", ErrInvalid, c.Link.Kind)
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel returns the configured log level.
func (c Config) LogLevel() (zerolog.Level, error) {
	result, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	return result, nil
}

// MachineConfig returns the configuration of the dialogue machine.
func (c Config) MachineConfig() dialogue.Config {
	return dialogue.Config{
		LocalModule:     c.LocalModule,
		PeerModule:      c.PeerModule,
		Trace:           c.Trace,
		TerminationMode: c.TerminationMode,
		Dialogues:       c.Dialogues,
	}
}
