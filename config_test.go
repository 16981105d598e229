package foldquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate(), "default config should validate")
}

func TestConfig_Validate_RejectsBadDialect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dialect.Default = Dialect("oracle")
	assert.Error(t, cfg.Validate(), "expected validation error for unknown dialect")
}

func TestConfig_Validate_RejectsZeroMaxSteps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Folding.MaxSteps = 0
	assert.Error(t, cfg.Validate(), "expected validation error for non-positive maxSteps")
}

func TestConfig_Validate_RejectsBadPrivacyMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Folding.DefaultPrivacyMode = PrivacyMode("redact")
	assert.Error(t, cfg.Validate(), "expected validation error for unknown privacy mode")
}
