package appconf

import (
	"log/slog"
	"strings"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps the --env flag value to an Environment.
// Unknown values fall back to Development.
func EnvFlagToEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "test":
		return Test
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

// Config holds the server-level settings.
type Config struct {
	Port          int
	Env           Environment
	ApiKeys       []string
	ExemptApiKeys []string
	RateLimit     int // requests per second per API key
	Verbose       bool
	LogFormat     string
	LogFile       string
}

// LogLevel is debug when verbose, info otherwise.
func (c Config) LogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
