package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCedarFile(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overrides.cedar")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCedarForbidOverridesToDeny(t *testing.T) {
	e, err := NewCedarEngine(writeCedarFile(t,
		`forbid(principal, action, resource) when { context.tld == "tk" };`))
	if err != nil {
		t.Fatalf("NewCedarEngine: %v", err)
	}

	r := e.Evaluate(ScanContext{Domain: "x.tk", TLD: "tk", Scheme: "https", Score: 5})
	if r.Decision != OverrideDeny {
		t.Errorf("decision = %s, want DENY", r.Decision)
	}
	if r.PolicyID == "" {
		t.Error("deny override should name the contributing policy")
	}
}

func TestCedarPermitOverridesToAllow(t *testing.T) {
	e, err := NewCedarEngine(writeCedarFile(t,
		`permit(principal, action, resource) when { context.domain == "intranet.corp" };`))
	if err != nil {
		t.Fatalf("NewCedarEngine: %v", err)
	}

	r := e.Evaluate(ScanContext{Domain: "intranet.corp", TLD: "corp", Scheme: "https", Score: 80})
	if r.Decision != OverrideAllow {
		t.Errorf("decision = %s, want ALLOW", r.Decision)
	}
}

// Cedar denies by default when nothing matches; that implicit deny must
// never flip a scored verdict, so an evaluation with no contributing
// policy reports NONE.
func TestCedarNoMatchIsNone(t *testing.T) {
	e, err := NewCedarEngine(writeCedarFile(t,
		`forbid(principal, action, resource) when { context.tld == "tk" };`))
	if err != nil {
		t.Fatalf("NewCedarEngine: %v", err)
	}

	r := e.Evaluate(ScanContext{Domain: "example.com", TLD: "com", Scheme: "https", Score: 50})
	if r.Decision != OverrideNone {
		t.Errorf("decision = %s, want NONE when no policy contributed", r.Decision)
	}
}

func TestCedarNilEngineIsNone(t *testing.T) {
	var e *CedarEngine
	if r := e.Evaluate(ScanContext{Domain: "example.com"}); r.Decision != OverrideNone {
		t.Errorf("decision = %s, want NONE from nil engine", r.Decision)
	}
}

func TestCedarEmptyPathYieldsNilEngine(t *testing.T) {
	e, err := NewCedarEngine("")
	if err != nil {
		t.Fatalf("NewCedarEngine(\"\"): %v", err)
	}
	if e != nil {
		t.Error("empty path should yield a nil engine")
	}
}

func TestCedarFlagsVisibleToPolicies(t *testing.T) {
	e, err := NewCedarEngine(writeCedarFile(t,
		`forbid(principal, action, resource) when { context.flags.contains("KNOWN_THREAT") };`))
	if err != nil {
		t.Fatalf("NewCedarEngine: %v", err)
	}

	r := e.Evaluate(ScanContext{Domain: "example.com", TLD: "com", Flags: []string{"KNOWN_THREAT"}})
	if r.Decision != OverrideDeny {
		t.Errorf("decision = %s, want DENY on flagged scan", r.Decision)
	}
}

func TestCedarRejectsBrokenPolicyFile(t *testing.T) {
	if _, err := NewCedarEngine(writeCedarFile(t, `this is not cedar`)); err == nil {
		t.Error("expected error for unparseable policy text")
	}
}
