// Package homoglyph detects script mixing, confusable characters and
// punycode tricks in hostnames. All functions are pure and safe for
// concurrent use.
package homoglyph

import (
	"strings"

	"golang.org/x/net/idna"
)

// Fixed per-signal weights, capped at 100 in total.
const (
	punycodeWeight    = 30
	zeroWidthWeight   = 50
	mixedScriptWeight = 45
	confusableWeight  = 35
)

// Analysis is the result of inspecting a single hostname
type Analysis struct {
	HasRisk        bool           `json:"has_risk"`
	IsPunycode     bool           `json:"is_punycode"`
	HasMixedScript bool           `json:"has_mixed_script"`
	HasConfusables bool           `json:"has_confusables"`
	HasZeroWidth   bool           `json:"has_zero_width"`
	Reasons        []string       `json:"reasons,omitempty"`
	RiskScore      int            `json:"risk_score"`
	Skeleton       string         `json:"skeleton"`
	Scripts        map[string]int `json:"scripts,omitempty"`
}

// Skeleton maps every character of s through the confusables table to
// its Latin look-alike, strips zero-width characters and lowercases.
// Idempotent: Skeleton(Skeleton(s)) == Skeleton(s).
func Skeleton(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if zeroWidth[r] {
			continue
		}
		// fullwidth forms fold onto ASCII
		if r >= 0xFF01 && r <= 0xFF5E {
			r -= 0xFEE0
		}
		if mapped, ok := confusables[r]; ok {
			r = mapped
		}
		b.WriteRune(r)
	}
	return b.String()
}

// AreConfusable reports whether two distinct hostnames collapse to the
// same skeleton. Symmetric, and always false for identical inputs.
func AreConfusable(h1, h2 string) bool {
	if h1 == h2 {
		return false
	}
	return Skeleton(h1) == Skeleton(h2)
}

// Analyze inspects a hostname for homograph risk. Punycode labels are
// decoded first so that xn-- hosts are scored on what the user sees.
func Analyze(host string) Analysis {
	a := Analysis{
		Skeleton: Skeleton(host),
		Scripts:  make(map[string]int),
	}

	a.IsPunycode = strings.Contains(strings.ToLower(host), "xn--")

	decoded := host
	if a.IsPunycode {
		if u, err := idna.ToUnicode(host); err == nil {
			decoded = u
		}
	}

	seen := make(map[Script]bool)
	for _, r := range decoded {
		if zeroWidth[r] {
			a.HasZeroWidth = true
			continue
		}
		sc := ClassifyRune(r)
		seen[sc] = true
		a.Scripts[sc.String()]++
		if r > 0x7F {
			if _, ok := confusables[r]; ok {
				a.HasConfusables = true
			}
		}
	}

	// Mixed script requires Latin co-occurring with Cyrillic or Greek;
	// Common never participates.
	a.HasMixedScript = seen[ScriptLatin] && (seen[ScriptCyrillic] || seen[ScriptGreek])

	if a.IsPunycode {
		a.RiskScore += punycodeWeight
		a.Reasons = append(a.Reasons, "punycode-encoded label")
	}
	if a.HasZeroWidth {
		a.RiskScore += zeroWidthWeight
		a.Reasons = append(a.Reasons, "zero-width characters in hostname")
	}
	if a.HasMixedScript {
		a.RiskScore += mixedScriptWeight
		a.Reasons = append(a.Reasons, "latin mixed with cyrillic or greek")
	}
	if a.HasConfusables {
		a.RiskScore += confusableWeight
		a.Reasons = append(a.Reasons, "confusable characters present")
	}
	if a.RiskScore > 100 {
		a.RiskScore = 100
	}
	a.HasRisk = a.RiskScore > 0

	return a
}
