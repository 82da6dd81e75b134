package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halcyonsec/qrverdict/internal/policy"
	"github.com/halcyonsec/qrverdict/internal/signals"
	"github.com/halcyonsec/qrverdict/pkg/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(Options{})
}

func TestKnownGoodDomainIsSafe(t *testing.T) {
	out := newTestEngine(t).Analyze("https://www.google.com")
	if out.Kind != OutcomeURL {
		t.Fatalf("kind = %d", out.Kind)
	}
	a := out.Assessment
	if a.Verdict != models.VerdictSafe || a.Score > 30 {
		t.Errorf("google.com: verdict=%s score=%d, want SAFE <=30 (flags %v)", a.Verdict, a.Score, a.Flags)
	}
	if a.ID == "" {
		t.Error("missing scan ID")
	}
}

func TestTyposquatScoresHigh(t *testing.T) {
	out := newTestEngine(t).Analyze("https://paypa1.com/signin")
	a := out.Assessment
	if a.Score < 60 {
		t.Errorf("paypa1.com/signin: score=%d, want >=60 (details %+v)", a.Score, a.Details)
	}
	if !hasFlag(a.Flags, "BRAND_IMPERSONATION") {
		t.Errorf("flags = %v, want a brand impersonation signal", a.Flags)
	}
}

func TestCyrillicHomographIsMalicious(t *testing.T) {
	out := newTestEngine(t).Analyze("https://аpple.com/verify")
	a := out.Assessment
	if a.Score < 70 {
		t.Errorf("homograph apple: score=%d, want >=70 (flags %v, details %+v)", a.Score, a.Flags, a.Details)
	}
	if !hasFlag(a.Flags, "MIXED_SCRIPTS") && !hasFlag(a.Flags, "BRAND_HOMOGRAPH") {
		t.Errorf("flags = %v, want a mixed-script or homograph signal", a.Flags)
	}
}

// Zero-tolerance invariant: well-known legitimate domains may come out
// SUSPICIOUS at worst, never MALICIOUS.
func TestLegitimateCorpusNeverMalicious(t *testing.T) {
	corpus := []string{
		"https://www.google.com",
		"https://github.com/golang/go",
		"https://en.wikipedia.org/wiki/QR_code",
		"https://www.amazon.com/gp/cart",
		"https://www.apple.com/iphone/",
		"https://www.microsoft.com/en-us/windows",
		"https://www.paypal.com/signin",
		"https://accounts.google.com/ServiceLogin",
		"https://www.netflix.com/browse",
		"https://www.bankofamerica.com/",
		"https://stackoverflow.com/questions",
		"https://www.nytimes.com/section/world",
	}
	e := newTestEngine(t)
	for _, u := range corpus {
		a := e.Analyze(u).Assessment
		if a.Verdict == models.VerdictMalicious {
			t.Errorf("%s flagged MALICIOUS (score=%d flags=%v details=%+v)", u, a.Score, a.Flags, a.Details)
		}
	}
}

func TestBuiltinThreatHit(t *testing.T) {
	out := newTestEngine(t).Analyze("https://secure-paypal-login.tk/account")
	a := out.Assessment
	if !a.Details.IntelHit {
		t.Fatalf("expected intel hit, details %+v", a.Details)
	}
	if !hasFlag(a.Flags, "KNOWN_THREAT") {
		t.Errorf("flags = %v, want KNOWN_THREAT", a.Flags)
	}
	if a.Verdict != models.VerdictMalicious {
		t.Errorf("verdict = %s score = %d, want MALICIOUS", a.Verdict, a.Score)
	}
}

func TestEmptyInputIsUnknown(t *testing.T) {
	e := newTestEngine(t)
	for _, in := range []string{"", "   ", "\n\t"} {
		a := e.Analyze(in).Assessment
		if a == nil || a.Verdict != models.VerdictUnknown {
			t.Errorf("Analyze(%q) verdict != UNKNOWN", in)
		}
	}
}

func TestNonURLPayloadRouting(t *testing.T) {
	out := newTestEngine(t).Analyze("WIFI:T:nopass;S:Free Coffee Shop;;")
	if out.Kind != OutcomePayload {
		t.Fatalf("kind = %d, want payload", out.Kind)
	}
	if out.PayloadType != models.TypeWiFi {
		t.Errorf("type = %s", out.PayloadType)
	}
	if out.Payload.RiskScore < 35 {
		t.Errorf("open wifi score = %d, want >= 35", out.Payload.RiskScore)
	}
}

func TestRateLimiterDeniesSecondScan(t *testing.T) {
	e := New(Options{ScanLimit: 1})
	if out := e.Analyze("https://example.com"); out.Kind == OutcomeRateLimited {
		t.Fatal("first scan rate limited")
	}
	if out := e.Analyze("https://example.com"); out.Kind != OutcomeRateLimited {
		t.Error("second scan not rate limited")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	r := NewRateLimiter(1)
	base := time.Now()
	r.now = func() time.Time { return base }

	if !r.Allow() {
		t.Fatal("first call denied")
	}
	if r.Allow() {
		t.Fatal("second call in window allowed")
	}
	r.now = func() time.Time { return base.Add(2 * time.Minute) }
	if !r.Allow() {
		t.Error("call after window reset denied")
	}
}

func TestConfidenceBoundsAndMonotonicity(t *testing.T) {
	for score := 0; score <= 100; score++ {
		for flags := 0; flags <= 10; flags++ {
			c := confidence(score, flags)
			if c <= 0 || c >= 1 {
				t.Fatalf("confidence(%d,%d) = %f outside (0,1)", score, flags, c)
			}
			if flags > 0 && c < confidence(score, flags-1) {
				t.Fatalf("confidence not monotonic in flag count at score=%d flags=%d", score, flags)
			}
		}
	}
	// Further from the threshold means more certain.
	if confidence(0, 0) <= confidence(29, 0) {
		t.Error("confidence should grow with distance from the SAFE threshold")
	}
	if confidence(100, 0) <= confidence(72, 0) {
		t.Error("confidence should grow with distance from the MALICIOUS threshold")
	}
}

func TestAggregateClampAndFlagDedup(t *testing.T) {
	in := AggregateInput{
		Heuristics:    signals.HeuristicResult{Score: 40, Flags: []string{"A", "B", "A"}},
		Brand:         signals.BrandMatch{Score: 20, Flags: []string{"B", "C"}},
		TLDScore:      10,
		TLDFlag:       "C",
		MLProbability: 1.0,
		BloomHit:      true,
		BloomPenalty:  40,
	}
	a := Aggregate(in)
	if a.Score != 100 {
		t.Errorf("score = %d, want clamp at 100", a.Score)
	}
	want := []string{"A", "B", "C", "KNOWN_THREAT"}
	if len(a.Flags) != len(want) {
		t.Fatalf("flags = %v, want %v", a.Flags, want)
	}
	for i := range want {
		if a.Flags[i] != want[i] {
			t.Errorf("flags[%d] = %s, want %s", i, a.Flags[i], want[i])
		}
	}
	if a.Details.ML != 30 {
		t.Errorf("ML contribution = %d, want 30 at probability 1.0", a.Details.ML)
	}
}

func TestCedarDenyForcesMalicious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.cedar")
	text := `forbid(principal, action, resource) when { context.domain == "example.com" };`
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	cedarEngine, err := policy.NewCedarEngine(path)
	if err != nil {
		t.Fatalf("NewCedarEngine: %v", err)
	}

	e := New(Options{Cedar: cedarEngine})
	a := e.Analyze("https://example.com/page").Assessment
	if a.Verdict != models.VerdictMalicious {
		t.Errorf("verdict = %s, want MALICIOUS under a deny override", a.Verdict)
	}
	if !hasFlag(a.Flags, "POLICY_OVERRIDE_DENY") {
		t.Errorf("flags = %v, want POLICY_OVERRIDE_DENY", a.Flags)
	}

	// Unmatched domains keep their scored verdict.
	b := e.Analyze("https://www.google.com").Assessment
	if b.Verdict != models.VerdictSafe {
		t.Errorf("verdict = %s, want SAFE when no override matched", b.Verdict)
	}
}

func TestCedarAllowForcesSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.cedar")
	text := `permit(principal, action, resource) when { context.domain == "secure-paypal-login.tk" };`
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	cedarEngine, err := policy.NewCedarEngine(path)
	if err != nil {
		t.Fatalf("NewCedarEngine: %v", err)
	}

	e := New(Options{Cedar: cedarEngine})
	a := e.Analyze("https://secure-paypal-login.tk/account").Assessment
	if a.Verdict != models.VerdictSafe {
		t.Errorf("verdict = %s, want SAFE under an allow override", a.Verdict)
	}
	if !hasFlag(a.Flags, "POLICY_OVERRIDE_ALLOW") {
		t.Errorf("flags = %v, want POLICY_OVERRIDE_ALLOW", a.Flags)
	}
}

func hasFlag(flags []string, f string) bool {
	for _, x := range flags {
		if x == f {
			return true
		}
	}
	return false
}
