// Package injection detects prompt-injection attempts in untrusted input
// against a fixed catalogue of adversarial patterns.
package injection

import "regexp"

// patterns is the fixed catalogue of case-insensitive adversarial phrases.
// Exactly 26 entries — see TestPatternCount.
var patterns = []string{
	`(?i)ignore\s+(all\s+)?previous\s+instructions`,
	`(?i)ignore\s+(all\s+)?prior\s+instructions`,
	`(?i)ignore\s+(all\s+)?above\s+instructions`,
	`(?i)disregard\s+(all\s+)?previous`,
	`(?i)forget\s+(all\s+)?previous`,
	`(?i)you\s+are\s+now\s+`,
	`(?i)new\s+persona`,
	`(?i)act\s+as\s+if\s+you\s+(are|were)\s+`,
	`(?i)pretend\s+(you\s+are|to\s+be)\s+`,
	`(?i)skip\s+permissions`,
	`(?i)bypass\s+(security|rules|restrictions|filters)`,
	`(?i)override\s+(security|rules|instructions|system)`,
	`(?i)reveal\s+(your|the)\s+(system\s+)?prompt`,
	`(?i)show\s+(me\s+)?(your|the)\s+(system\s+)?prompt`,
	`(?i)print\s+(your|the)\s+(system\s+)?prompt`,
	`(?i)output\s+(your|the)\s+instructions`,
	`(?i)what\s+are\s+your\s+(system\s+)?instructions`,
	`(?i)repeat\s+(your|the)\s+(system|initial)\s+(prompt|instructions)`,
	`(?i)display\s+(the\s+)?contents?\s+of\s+(your\s+)?(CLAUDE|claude)\.md`,
	`(?i)read\s+(/etc/shadow|/etc/passwd|\.env|credentials|authorized_keys)`,
	`(?i)cat\s+(/etc/shadow|/etc/passwd|\.env|\.ssh)`,
	`(?i)sudo\s+`,
	`(?i)rm\s+-rf\s+/`,
	`(?i)\bDAN\b.*\bjailbreak\b`,
	`(?i)developer\s+mode\s+(enabled|on|activated)`,
	`(?i)ignore\s+your\s+(safety|security)\s+(rules|guidelines|protocols)`,
}

// Detector holds the compiled pattern catalogue.
type Detector struct {
	compiled []*regexp.Regexp
}

// New compiles the fixed pattern catalogue. A malformed pattern is a
// programmer error in this package, not a runtime condition, so it panics —
// callers are expected to construct the detector once at startup and treat
// a panic here as a fatal configuration error.
func New() *Detector {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			panic("injection: invalid pattern " + p + ": " + err.Error())
		}
		compiled = append(compiled, re)
	}
	return &Detector{compiled: compiled}
}

// Detect reports whether any pattern in the catalogue matches text.
func (d *Detector) Detect(text string) bool {
	for _, re := range d.compiled {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// MatchedIndices returns the indices of every pattern that matched text.
// Exposed for tests that assert on multiple simultaneous matches.
func (d *Detector) MatchedIndices(text string) []int {
	var matched []int
	for i, re := range d.compiled {
		if re.MatchString(text) {
			matched = append(matched, i)
		}
	}
	return matched
}
