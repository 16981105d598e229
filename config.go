package foldquery

import "time"

// Config consolidates the settings the compiler and its cmd/ wrappers need.
// It is intentionally narrow: the compiler itself is a pure function of
// (Query, options) -> CompiledPlan and does not read a Config, so there is no connection-pool
// or retry configuration here, unlike the teacher's entity-store Config.
type Config struct {
	Dialect DialectConfig `json:"dialect"`
	Folding FoldingConfig `json:"folding"`
	Logging LoggingConfig `json:"logging"`
}

// DialectConfig selects and parameterises the target SQL dialect.
type DialectConfig struct {
	Default           Dialect `json:"default"`
	IdentifierQuoting bool    `json:"identifierQuoting"`
}

// FoldingConfig tunes the folding engine's behaviour.
type FoldingConfig struct {
	MaxSteps             int           `json:"maxSteps"`
	DefaultPrivacyMode   PrivacyMode   `json:"defaultPrivacyMode"`
	EnableExplainTrace   bool          `json:"enableExplainTrace"`
	CompileTimeout       time.Duration `json:"compileTimeout"`
	PreferNativeOverflow bool          `json:"preferNativeOverflow"` // allow hybrid plans when only a suffix folds
}

// LoggingConfig mirrors the teacher's structured-logging knobs (spec's
// ambient stack, carried regardless of Non-goals around observability).
type LoggingConfig struct {
	Level             string `json:"level"`
	Format            string `json:"format"`
	EnableStructured  bool   `json:"enableStructured"`
	SanitizeParameters bool  `json:"sanitizeParameters"`
}

// DefaultConfig returns sane defaults for standalone use (cmd/foldserver).
func DefaultConfig() *Config {
	return &Config{
		Dialect: DialectConfig{
			Default:           DialectPostgres,
			IdentifierQuoting: true,
		},
		Folding: FoldingConfig{
			MaxSteps:             500,
			DefaultPrivacyMode:   PrivacyEnforce,
			EnableExplainTrace:   true,
			CompileTimeout:       5 * time.Second,
			PreferNativeOverflow: true,
		},
		Logging: LoggingConfig{
			Level:              "info",
			Format:             "json",
			EnableStructured:   true,
			SanitizeParameters: true,
		},
	}
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.Folding.MaxSteps <= 0 {
		return &ConfigError{Field: "folding.maxSteps", Message: "must be greater than 0"}
	}
	switch c.Dialect.Default {
	case DialectPostgres, DialectMySQL, DialectSQLite, DialectSQLServer:
	default:
		return &ConfigError{Field: "dialect.default", Message: "must be one of postgres, mysql, sqlite, sqlserver"}
	}
	switch c.Folding.DefaultPrivacyMode {
	case PrivacyIgnore, PrivacyEnforce, PrivacyWarn:
	default:
		return &ConfigError{Field: "folding.defaultPrivacyMode", Message: "must be one of ignore, enforce, warn"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
