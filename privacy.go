package foldquery

// PrivacyMode controls how the compiler reacts when a merge/append step
// would combine rows from sources at different privacy levels.
type PrivacyMode string

const (
	// PrivacyIgnore never consults privacy levels; every merge/append is
	// free to fold.
	PrivacyIgnore PrivacyMode = "ignore"
	// PrivacyEnforce refuses to fold a merge/append across sources whose
	// privacy levels differ and are not explicitly compatible; the step
	// and everything after it stays local (reason privacy_firewall).
	PrivacyEnforce PrivacyMode = "enforce"
	// PrivacyWarn folds anyway. The warning text privacyFirewallCheck
	// returns is not recorded in the explain trace.
	PrivacyWarn PrivacyMode = "warn"
)

// PrivacyOptions carries the per-source privacy classification consulted by
// the firewall check. Sources absent from Levels are treated as
// unclassified and always compatible with each other.
type PrivacyOptions struct {
	Mode   PrivacyMode       `json:"mode"`
	Levels map[string]string `json:"levels,omitempty"` // PrivacySourceID -> privacy level
}

// privacyFirewallCheck reports whether combining rows from source ids left
// and right is permitted under opts, and under PrivacyWarn a warning text
// describing a level mismatch. A false return under
// PrivacyEnforce means the caller must stop folding at this step.
func privacyFirewallCheck(left, right string, opts PrivacyOptions) (allowed bool, warning string) {
	if opts.Mode == PrivacyIgnore {
		return true, ""
	}
	leftLevel, leftKnown := opts.Levels[left]
	rightLevel, rightKnown := opts.Levels[right]
	if !leftKnown || !rightKnown {
		return true, ""
	}
	if leftLevel == rightLevel {
		return true, ""
	}
	switch opts.Mode {
	case PrivacyEnforce:
		return false, ""
	case PrivacyWarn:
		return true, "combining sources at differing privacy levels (" + leftLevel + ", " + rightLevel + ")"
	default:
		return true, ""
	}
}
