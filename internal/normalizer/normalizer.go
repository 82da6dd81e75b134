// Package normalizer de-obfuscates raw URLs before scoring. The
// pipeline is pure, deterministic and order-sensitive: invisible
// characters first, then bidi overrides, percent-decoding, homograph
// detection, nested-redirect discovery, unicode normalization,
// punycode and numeric-host checks.
package normalizer

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/halcyonsec/qrverdict/internal/homoglyph"
)

const (
	// MaxURLLength bounds input before any processing so repeated
	// decode passes cannot blow up on adversarial input.
	MaxURLLength = 2048

	maxDecodeIterations = 5
)

// Result reports the normalized URL together with every obfuscation
// technique detected along the way. Nested URLs are reported but never
// recursively analyzed here.
type Result struct {
	OriginalURL     string   `json:"original_url"`
	NormalizedURL   string   `json:"normalized_url"`
	DetectedAttacks []Attack `json:"detected_attacks,omitempty"`
	NestedURLs      []string `json:"nested_urls,omitempty"`
	RiskScore       int      `json:"risk_score"`
}

// HasAttack reports whether a specific technique was detected
func (r *Result) HasAttack(a Attack) bool {
	for _, d := range r.DetectedAttacks {
		if d == a {
			return true
		}
	}
	return false
}

var (
	// invisible characters stripped in stage 1
	invisibleSet = map[rune]bool{
		0x00AD: true, 0x180E: true, 0x200B: true, 0x200C: true,
		0x200D: true, 0x2060: true, 0xFEFF: true,
	}
	// bidi control characters stripped in stage 2
	bidiSet = map[rune]bool{
		0x061C: true, 0x200E: true, 0x200F: true,
		0x202A: true, 0x202B: true, 0x202C: true, 0x202D: true,
		0x202E: true, 0x2066: true, 0x2067: true, 0x2068: true,
		0x2069: true,
	}

	redirectParams = map[string]bool{
		"url": true, "u": true, "link": true, "to": true, "goto": true,
		"next": true, "target": true, "dest": true, "destination": true,
		"redirect": true, "redirect_uri": true, "redirect_url": true,
		"return": true, "returnto": true, "return_to": true,
		"rurl": true, "continue": true, "fallback": true,
	}

	embeddedURLRe = regexp.MustCompile(`https?://[^\s'"<>]+`)
)

// Normalize runs the full de-obfuscation pipeline over a raw URL
func Normalize(raw string) Result {
	if len(raw) > MaxURLLength {
		// Back off to a rune boundary so the cap never leaves a split
		// multi-byte sequence at the tail.
		cut := MaxURLLength
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut]
	}

	res := Result{OriginalURL: raw}
	cur := raw

	// 1. invisible characters
	var stripped bool
	cur, stripped = stripRunes(cur, invisibleSet)
	if stripped {
		res.addAttack(AttackZeroWidthCharacters)
	}

	// 2. bidi / RTL overrides
	cur, stripped = stripRunes(cur, bidiSet)
	if stripped {
		res.addAttack(AttackRTLOverride)
	}

	// 3. iterative percent-decoding
	var rounds int
	var unnecessary, mixedCase bool
	for i := 0; i < maxDecodeIterations; i++ {
		next, changed, roundUnnecessary, roundMixed := decodeRound(cur)
		if !changed {
			break
		}
		rounds++
		unnecessary = unnecessary || roundUnnecessary
		mixedCase = mixedCase || roundMixed
		cur = next
	}
	if rounds >= 2 {
		res.addAttack(AttackDoubleEncoding)
	}
	if unnecessary {
		res.addAttack(AttackUnnecessaryEncoding)
	}
	if mixedCase {
		res.addAttack(AttackMixedCaseEncoding)
	}

	// 4. homograph detection on the host (detect only, never rewrite)
	host := extractHost(cur)
	if host != "" {
		ha := homoglyph.Analyze(host)
		if ha.HasMixedScript {
			res.addAttack(AttackMixedScripts)
		}
		if hasCombiningMarks(host) {
			res.addAttack(AttackCombiningMarks)
		}
	}

	// 5. nested URLs in redirect parameters and data:/javascript: schemes
	res.NestedURLs = findNestedURLs(cur)
	if len(res.NestedURLs) > 0 {
		res.addAttack(AttackNestedRedirects)
	}

	// 6. NFC normalization with combining marks removed
	normalized := stripCombiningMarks(norm.NFC.String(cur))
	if normalized != cur {
		res.addAttack(AttackUnicodeNormalization)
		cur = normalized
	}

	// 7. punycode marker
	if strings.Contains(strings.ToLower(cur), "xn--") {
		res.addAttack(AttackPunycodeDomain)
	}

	// 8. numeric-host obfuscation
	if host = extractHost(cur); host != "" {
		if attack, ok := detectIPObfuscation(host); ok {
			res.addAttack(attack)
		}
	}

	res.NormalizedURL = canonicalize(cur)

	if res.RiskScore > 100 {
		res.RiskScore = 100
	}
	return res
}

func (r *Result) addAttack(a Attack) {
	if r.HasAttack(a) {
		return
	}
	r.DetectedAttacks = append(r.DetectedAttacks, a)
	r.RiskScore += a.Weight()
}

func stripRunes(s string, set map[rune]bool) (string, bool) {
	if !strings.ContainsFunc(s, func(r rune) bool { return set[r] }) {
		return s, false
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if set[r] {
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), true
}

// decodeRound decodes every %XX escape whose value is printable ASCII.
// It reports whether anything was decoded, whether a safe character was
// needlessly encoded, and whether an escape used mixed-case hex digits.
func decodeRound(s string) (out string, changed, unnecessary, mixedCase bool) {
	var b strings.Builder
	var sawLower, sawUpper bool
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			h1, ok1 := hexVal(s[i+1])
			h2, ok2 := hexVal(s[i+2])
			if ok1 && ok2 {
				v := byte(h1<<4 | h2)
				if v >= 0x20 && v < 0x7F {
					if hexCaseMixed(s[i+1], s[i+2]) {
						mixedCase = true
					}
					for _, c := range []byte{s[i+1], s[i+2]} {
						if c >= 'a' && c <= 'f' {
							sawLower = true
						}
						if c >= 'A' && c <= 'F' {
							sawUpper = true
						}
					}
					if isSafeByte(v) {
						unnecessary = true
					}
					b.WriteByte(v)
					changed = true
					i += 2
					continue
				}
			}
		}
		b.WriteByte(s[i])
	}
	if sawLower && sawUpper {
		mixedCase = true
	}
	return b.String(), changed, unnecessary, mixedCase
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

func hexCaseMixed(a, b byte) bool {
	lower := (a >= 'a' && a <= 'f') || (b >= 'a' && b <= 'f')
	upper := (a >= 'A' && a <= 'F') || (b >= 'A' && b <= 'F')
	return lower && upper
}

// isSafeByte reports URL-safe characters that never need encoding
func isSafeByte(v byte) bool {
	switch {
	case v >= 'a' && v <= 'z', v >= 'A' && v <= 'Z', v >= '0' && v <= '9':
		return true
	case v == '-', v == '.', v == '_', v == '~':
		return true
	}
	return false
}

var combiningRanges = [][2]rune{
	{0x0300, 0x036F},
	{0x1AB0, 0x1AFF},
	{0x1DC0, 0x1DFF},
	{0x20D0, 0x20FF},
	{0xFE20, 0xFE2F},
}

func isCombiningMark(r rune) bool {
	for _, rng := range combiningRanges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}

func hasCombiningMarks(s string) bool {
	return strings.ContainsFunc(s, isCombiningMark)
}

func stripCombiningMarks(s string) string {
	if !hasCombiningMarks(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isCombiningMark(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Hostname()
}

// findNestedURLs collects embedded URLs from known redirect parameters
// and from data:/javascript: payloads. The collected URLs are reported
// to the caller, never recursively normalized.
func findNestedURLs(raw string) []string {
	var nested []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		nested = append(nested, u)
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "javascript:") {
		for _, m := range embeddedURLRe.FindAllString(raw, 8) {
			add(m)
		}
		return nested
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	for key, vals := range u.Query() {
		if !redirectParams[strings.ToLower(key)] {
			continue
		}
		for _, v := range vals {
			lv := strings.ToLower(v)
			if strings.HasPrefix(lv, "http://") || strings.HasPrefix(lv, "https://") {
				add(v)
			}
		}
	}
	return nested
}

// canonicalize lowercases the scheme and host, leaving the rest intact
func canonicalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}
