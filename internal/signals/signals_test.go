package signals

import (
	"strings"
	"testing"
)

func TestTldScorer(t *testing.T) {
	s := NewTldScorer()
	if w, tld := s.Score("evil.tk"); w != 10 || tld != "tk" {
		t.Errorf("Expected (10, tk), got (%d, %s)", w, tld)
	}
	if w, _ := s.Score("example.com"); w != 0 {
		t.Errorf("Expected 0 for .com, got %d", w)
	}
	if w, _ := s.Score("nodots"); w != 0 {
		t.Errorf("Expected 0 for dotless host, got %d", w)
	}
}

func TestTldScorerWithExtras(t *testing.T) {
	s := NewTldScorer()
	extra := map[string]int{"zz": 9}
	if w, tld := s.ScoreWith("bad.zz", extra); w != 9 || tld != "zz" {
		t.Errorf("Expected bundle TLD weight to apply, got (%d, %s)", w, tld)
	}
	// built-in weight wins when higher
	if w, _ := s.ScoreWith("bad.tk", map[string]int{"tk": 3}); w != 10 {
		t.Errorf("Expected built-in weight 10 to win, got %d", w)
	}
}

func TestHeuristicsCleanURL(t *testing.T) {
	h := NewHeuristicEngine()
	r := h.Evaluate("https://www.google.com/search?q=weather")
	if r.Score != 0 {
		t.Errorf("Clean URL should score 0, got %d with %v", r.Score, r.Flags)
	}
}

func TestHeuristicsPhishyURL(t *testing.T) {
	h := NewHeuristicEngine()
	r := h.Evaluate("https://paypa1.com/signin")
	if !hasFlag(r.Flags, "CREDENTIAL_KEYWORD") {
		t.Errorf("Expected CREDENTIAL_KEYWORD, got %v", r.Flags)
	}
	if !hasFlag(r.Flags, "LEET_SUBSTITUTION") {
		t.Errorf("Expected LEET_SUBSTITUTION, got %v", r.Flags)
	}
	if r.Score < 20 {
		t.Errorf("Expected score >= 20, got %d", r.Score)
	}
}

func TestHeuristicsScoreCapped(t *testing.T) {
	h := NewHeuristicEngine()
	// trips credential keyword, at-symbol, http, port, subdomains, hyphens
	r := h.Evaluate("http://user@a.b.c.d.e-f-g-h.example:8081/login?next=" + strings.Repeat("x", 120))
	if r.Score > maxHeuristicScore {
		t.Errorf("Score must be capped at %d, got %d", maxHeuristicScore, r.Score)
	}
}

func TestBrandOfficialDomain(t *testing.T) {
	d := NewBrandDetector(nil)
	m := d.Detect("www.paypal.com")
	if m.Score != 0 || m.MatchType != "official" {
		t.Errorf("Official domain must score 0, got %+v", m)
	}
}

func TestBrandLeetTyposquat(t *testing.T) {
	d := NewBrandDetector(nil)
	m := d.Detect("paypa1.com")
	if m.Score != maxBrandScore {
		t.Errorf("Expected score %d, got %+v", maxBrandScore, m)
	}
	if !hasFlag(m.Flags, "BRAND_IMPERSONATION") {
		t.Errorf("Expected BRAND_IMPERSONATION flag, got %v", m.Flags)
	}
}

func TestBrandHomograph(t *testing.T) {
	d := NewBrandDetector(nil)
	m := d.Detect("аpple.com") // Cyrillic а
	if m.MatchType != "homograph" || m.Score != maxBrandScore {
		t.Errorf("Expected homograph match, got %+v", m)
	}
}

func TestBrandCombosquat(t *testing.T) {
	d := NewBrandDetector(nil)
	m := d.Detect("paypal-secure-login.com")
	if m.MatchType != "combosquat" {
		t.Errorf("Expected combosquat match, got %+v", m)
	}
	if m.Score == 0 {
		t.Error("Combosquat must score impersonation points")
	}
}

func TestBrandUnrelatedHost(t *testing.T) {
	d := NewBrandDetector(nil)
	m := d.Detect("example.org")
	if m.Score != 0 || len(m.Flags) != 0 {
		t.Errorf("Unrelated host must not match, got %+v", m)
	}
}

func TestFeatureVectorBounds(t *testing.T) {
	e := NewFeatureExtractor()
	urls := []string{
		"https://www.google.com",
		"http://user@paypa1-secure.tk:8081/" + strings.Repeat("a/", 60) + "?q=" + strings.Repeat("b", 500),
		"not a url at all",
		"",
	}
	for _, u := range urls {
		f := e.Extract(u)
		for i, v := range f {
			if v < 0 || v > 1 {
				t.Errorf("%q: feature %d out of [0,1]: %f", u, i, v)
			}
		}
	}
}

func TestModelPredictBounds(t *testing.T) {
	m := DefaultModel()
	var zero, ones FeatureVector
	for i := range ones {
		ones[i] = 1
	}
	for _, f := range []FeatureVector{zero, ones} {
		p := m.Predict(f)
		if p <= 0 || p >= 1 {
			t.Errorf("Probability must be in (0,1), got %f", p)
		}
	}
}

func TestModelOverflowGuard(t *testing.T) {
	var huge [FeatureCount]float64
	for i := range huge {
		huge[i] = 1e9
	}
	m := NewLogisticModel(huge, 1e9)
	var ones FeatureVector
	for i := range ones {
		ones[i] = 1
	}
	p := m.Predict(ones)
	if p != 1-1e-7 {
		t.Errorf("Expected overflow short-circuit to 1-1e-7, got %g", p)
	}
	neg := huge
	for i := range neg {
		neg[i] = -1e9
	}
	m = NewLogisticModel(neg, -1e9)
	if p := m.Predict(ones); p != 1e-7 {
		t.Errorf("Expected overflow short-circuit to 1e-7, got %g", p)
	}
}

func TestModelSeparatesPhishyFromClean(t *testing.T) {
	e := NewFeatureExtractor()
	m := DefaultModel()
	clean := m.Predict(e.Extract("https://www.google.com/search?q=weather"))
	phishy := m.Predict(e.Extract("https://paypa1.com/signin"))
	if phishy <= clean {
		t.Errorf("Phishy URL must outscore clean URL: %f vs %f", phishy, clean)
	}
	if clean > 0.3 {
		t.Errorf("Clean URL probability too high: %f", clean)
	}
	if phishy < 0.6 {
		t.Errorf("Phishy URL probability too low: %f", phishy)
	}
}

func TestLoadModelWeightsValidation(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"wrong count", `{"bias":0,"weights":[1,2,3]}`},
		{"not json", `{{{`},
		{"empty", ``},
		{"null weights", `{"bias":0,"weights":null}`},
	}
	for _, c := range cases {
		if _, err := LoadModelWeights([]byte(c.json)); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestLoadModelWeightsFallback(t *testing.T) {
	m := LoadModelWeightsOrDefault([]byte(`{"bias":0,"weights":[1]}`))
	if m == nil {
		t.Fatal("Fallback must return the default model")
	}
	var f FeatureVector
	if p := m.Predict(f); p <= 0 || p >= 1 {
		t.Errorf("Fallback model must predict in (0,1), got %f", p)
	}
}

func TestLoadModelWeightsValid(t *testing.T) {
	j := `{"bias":-1.5,"weights":[0.1,0.2,0.3,0.4,0.5,0.6,0.7,0.8,0.9,1.0,1.1,1.2,1.3,1.4,1.5]}`
	m, err := LoadModelWeights([]byte(j))
	if err != nil {
		t.Fatalf("Valid weights rejected: %v", err)
	}
	var f FeatureVector
	if p := m.Predict(f); p <= 0 || p >= 1 {
		t.Errorf("Expected probability in (0,1), got %f", p)
	}
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

// Latency regression gates for the per-extractor SLAs.

func BenchmarkHeuristics(b *testing.B) {
	h := NewHeuristicEngine()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h.Evaluate("https://paypa1-secure.example.tk/signin?next=https://evil.test")
	}
}

func BenchmarkBrandDetect(b *testing.B) {
	d := NewBrandDetector(nil)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		d.Detect("paypa1-secure-login.example.com")
	}
}

func BenchmarkTldScore(b *testing.B) {
	s := NewTldScorer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.Score("evil.example.tk")
	}
}

func BenchmarkMLInference(b *testing.B) {
	e := NewFeatureExtractor()
	m := DefaultModel()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.Predict(e.Extract("https://paypa1.com/signin"))
	}
}
