package normalizer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeCleanURL(t *testing.T) {
	r := Normalize("https://www.google.com/search?q=weather")
	if len(r.DetectedAttacks) != 0 {
		t.Errorf("Clean URL should detect no attacks, got %v", r.DetectedAttacks)
	}
	if r.RiskScore != 0 {
		t.Errorf("Expected risk 0, got %d", r.RiskScore)
	}
}

func TestNormalizeIdempotentOnClean(t *testing.T) {
	in := "https://example.com/path?a=1"
	first := Normalize(in)
	second := Normalize(first.NormalizedURL)
	if second.NormalizedURL != first.NormalizedURL {
		t.Errorf("Normalization should be stable: %q vs %q", first.NormalizedURL, second.NormalizedURL)
	}
	if second.RiskScore != 0 {
		t.Errorf("Re-normalizing a clean result must stay clean, got %v", second.DetectedAttacks)
	}
}

func TestZeroWidthStripped(t *testing.T) {
	r := Normalize("https://pay\u200bpal.com/login")
	if !r.HasAttack(AttackZeroWidthCharacters) {
		t.Errorf("Expected ZERO_WIDTH_CHARACTERS, got %v", r.DetectedAttacks)
	}
	if strings.ContainsRune(r.NormalizedURL, '\u200b') {
		t.Error("Zero-width character must be removed from normalized URL")
	}
	if r.RiskScore < 30 {
		t.Errorf("Expected risk >= 30, got %d", r.RiskScore)
	}
}

func TestRTLOverrideStripped(t *testing.T) {
	r := Normalize("https://example.com/\u202egpj.exe")
	if !r.HasAttack(AttackRTLOverride) {
		t.Errorf("Expected RTL_OVERRIDE, got %v", r.DetectedAttacks)
	}
	if strings.ContainsRune(r.NormalizedURL, '\u202e') {
		t.Error("RTL override must be removed from normalized URL")
	}
}

func TestDoubleEncoding(t *testing.T) {
	// %252F decodes to %2F, which decodes to / in a second round.
	r := Normalize("https://example.com/a%252Fb")
	if !r.HasAttack(AttackDoubleEncoding) {
		t.Errorf("Expected DOUBLE_ENCODING, got %v", r.DetectedAttacks)
	}
	if !strings.Contains(r.NormalizedURL, "a/b") {
		t.Errorf("Expected fully decoded path, got %q", r.NormalizedURL)
	}
}

func TestUnnecessaryEncoding(t *testing.T) {
	// %61 is a plain 'a' and never needs encoding.
	r := Normalize("https://example.com/%61dmin")
	if !r.HasAttack(AttackUnnecessaryEncoding) {
		t.Errorf("Expected UNNECESSARY_ENCODING, got %v", r.DetectedAttacks)
	}
}

func TestMixedCaseEncoding(t *testing.T) {
	r := Normalize("https://example.com/?x=%2f&y=%2F")
	if !r.HasAttack(AttackMixedCaseEncoding) {
		t.Errorf("Expected MIXED_CASE_ENCODING, got %v", r.DetectedAttacks)
	}
}

func TestDecodeIterationCap(t *testing.T) {
	// Six layers of encoding; the cap stops at five rounds without hanging.
	u := "https://example.com/" + strings.Repeat("%25", 6) + "41"
	r := Normalize(u)
	if !r.HasAttack(AttackDoubleEncoding) {
		t.Errorf("Expected DOUBLE_ENCODING for layered escapes, got %v", r.DetectedAttacks)
	}
}

func TestMixedScripts(t *testing.T) {
	r := Normalize("https://аpple.com/verify") // Cyrillic а
	if !r.HasAttack(AttackMixedScripts) {
		t.Errorf("Expected MIXED_SCRIPTS, got %v", r.DetectedAttacks)
	}
	if r.RiskScore < 45 {
		t.Errorf("Expected risk >= 45, got %d", r.RiskScore)
	}
}

func TestNestedRedirect(t *testing.T) {
	r := Normalize("https://example.com/out?url=https://evil.test/login")
	if !r.HasAttack(AttackNestedRedirects) {
		t.Errorf("Expected NESTED_REDIRECTS, got %v", r.DetectedAttacks)
	}
	if len(r.NestedURLs) != 1 || r.NestedURLs[0] != "https://evil.test/login" {
		t.Errorf("Expected nested URL reported, got %v", r.NestedURLs)
	}
}

func TestJavascriptSchemeNested(t *testing.T) {
	r := Normalize("javascript:window.open('https://evil.test/x')")
	if !r.HasAttack(AttackNestedRedirects) {
		t.Errorf("Expected NESTED_REDIRECTS for javascript scheme, got %v", r.DetectedAttacks)
	}
}

func TestPunycodeFlag(t *testing.T) {
	r := Normalize("https://xn--80ak6aa92e.com/")
	if !r.HasAttack(AttackPunycodeDomain) {
		t.Errorf("Expected PUNYCODE_DOMAIN, got %v", r.DetectedAttacks)
	}
}

func TestIPObfuscation(t *testing.T) {
	cases := []struct {
		url    string
		attack Attack
	}{
		{"http://3232235777/admin", AttackDecimalIP},
		{"http://0300.0250.0001.0001/", AttackOctalIP},
		{"http://0xc0a80101/", AttackHexIP},
		{"http://0xc0.0250.168.1/", AttackMixedIPNotation},
	}
	for _, c := range cases {
		r := Normalize(c.url)
		if !r.HasAttack(c.attack) {
			t.Errorf("%s: expected %s, got %v", c.url, c.attack, r.DetectedAttacks)
		}
	}
}

func TestPlainIPNotFlagged(t *testing.T) {
	r := Normalize("http://192.168.1.1/router")
	for _, a := range r.DetectedAttacks {
		switch a {
		case AttackDecimalIP, AttackOctalIP, AttackHexIP, AttackMixedIPNotation:
			t.Errorf("Plain dotted quad must not be flagged, got %v", r.DetectedAttacks)
		}
	}
}

func TestInputLengthBounded(t *testing.T) {
	huge := "https://example.com/" + strings.Repeat("%25", 100000)
	r := Normalize(huge)
	if len(r.OriginalURL) > MaxURLLength {
		t.Errorf("Input must be capped at %d, got %d", MaxURLLength, len(r.OriginalURL))
	}
}

func TestLengthCapKeepsRuneBoundary(t *testing.T) {
	// Pad so a multi-byte rune straddles the cap; the truncated input
	// must still be valid UTF-8.
	pad := MaxURLLength - len("https://example.com/") - 1
	huge := "https://example.com/" + strings.Repeat("a", pad) + "ééé"
	r := Normalize(huge)
	if len(r.OriginalURL) > MaxURLLength {
		t.Fatalf("Input must be capped at %d, got %d", MaxURLLength, len(r.OriginalURL))
	}
	if !utf8.ValidString(r.OriginalURL) {
		t.Errorf("Truncated input is not valid UTF-8: %q", r.OriginalURL[len(r.OriginalURL)-4:])
	}
}

func TestRiskScoreClamped(t *testing.T) {
	r := Normalize("https://\u200bаpple.com/\u202e?url=https://evil.test&x=%252F%61")
	if r.RiskScore > 100 {
		t.Errorf("Risk score must be clamped to 100, got %d", r.RiskScore)
	}
}

func BenchmarkNormalize(b *testing.B) {
	u := "https://example.com/out?url=https%3A%2F%2Fevil.test%2Flogin&x=%252F"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Normalize(u)
	}
}
