package foldquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrivacyFirewallCheck_IgnoreModeAlwaysAllows(t *testing.T) {
	opts := PrivacyOptions{Mode: PrivacyIgnore, Levels: map[string]string{"a": "restricted", "b": "public"}}
	allowed, _ := privacyFirewallCheck("a", "b", opts)
	assert.True(t, allowed, "ignore mode must always allow")
}

func TestPrivacyFirewallCheck_EnforceModeBlocksMismatch(t *testing.T) {
	opts := PrivacyOptions{Mode: PrivacyEnforce, Levels: map[string]string{"a": "restricted", "b": "public"}}
	allowed, _ := privacyFirewallCheck("a", "b", opts)
	assert.False(t, allowed, "enforce mode must block mismatched privacy levels")
}

func TestPrivacyFirewallCheck_EnforceModeAllowsMatching(t *testing.T) {
	opts := PrivacyOptions{Mode: PrivacyEnforce, Levels: map[string]string{"a": "restricted", "b": "restricted"}}
	allowed, _ := privacyFirewallCheck("a", "b", opts)
	assert.True(t, allowed, "enforce mode must allow matching privacy levels")
}

func TestPrivacyFirewallCheck_WarnModeAllowsWithWarning(t *testing.T) {
	opts := PrivacyOptions{Mode: PrivacyWarn, Levels: map[string]string{"a": "restricted", "b": "public"}}
	allowed, warning := privacyFirewallCheck("a", "b", opts)
	assert.True(t, allowed, "warn mode must still allow folding")
	assert.NotEmpty(t, warning, "warn mode must produce a warning message")
}

func TestPrivacyFirewallCheck_UnclassifiedSourcesAlwaysCompatible(t *testing.T) {
	opts := PrivacyOptions{Mode: PrivacyEnforce, Levels: map[string]string{}}
	allowed, _ := privacyFirewallCheck("a", "b", opts)
	assert.True(t, allowed, "unclassified sources must be treated as compatible")
}
