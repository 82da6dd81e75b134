package engine

import (
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/halcyonsec/qrverdict/internal/audit"
	"github.com/halcyonsec/qrverdict/internal/intel"
	"github.com/halcyonsec/qrverdict/internal/metrics"
	"github.com/halcyonsec/qrverdict/internal/normalizer"
	"github.com/halcyonsec/qrverdict/internal/payload"
	"github.com/halcyonsec/qrverdict/internal/policy"
	"github.com/halcyonsec/qrverdict/internal/signals"
	"github.com/halcyonsec/qrverdict/pkg/models"
)

// OutcomeKind discriminates the Outcome union.
type OutcomeKind int

const (
	// OutcomeURL carries a RiskAssessment for a URL payload.
	OutcomeURL OutcomeKind = iota
	// OutcomePayload carries a PayloadAnalysisResult for a non-URL payload.
	OutcomePayload
	// OutcomeRateLimited means the scan was refused by the limiter.
	OutcomeRateLimited
)

// Outcome is the result of analyzing one QR payload. Exactly one of
// Assessment or Payload is set, selected by Kind.
type Outcome struct {
	Kind        OutcomeKind
	ScanID      string
	PayloadType models.PayloadType
	Assessment  *models.RiskAssessment
	Payload     *models.PayloadAnalysisResult
	Policy      policy.Result
}

// Options configures an Engine. Zero values fall back to compiled-in
// defaults so tests can build isolated instances cheaply.
type Options struct {
	BrandDB   *signals.BrandDatabase
	Model     *signals.LogisticModel
	Intel     *intel.Loader
	Policies  *policy.Loader
	Cedar     *policy.CedarEngine
	Audit     *audit.Logger
	ScanLimit int // scans per minute, 0 = unlimited
}

// Engine runs the full analysis pipeline. All components are immutable
// after construction except the intel loader and policy loader, which
// manage their own synchronization; the engine itself is safe for
// concurrent use.
type Engine struct {
	heuristics *signals.HeuristicEngine
	brands     *signals.BrandDetector
	tld        *signals.TldScorer
	features   *signals.FeatureExtractor
	model      *signals.LogisticModel
	intel      *intel.Loader
	policies   *policy.Loader
	cedar      *policy.CedarEngine
	payloads   *payload.Analyzer
	limiter    *RateLimiter
	audit      *audit.Logger
}

// New constructs an engine from options.
func New(opts Options) *Engine {
	db := opts.BrandDB
	if db == nil {
		db = signals.DefaultBrandDatabase()
	}
	model := opts.Model
	if model == nil {
		model = signals.DefaultModel()
	}
	loader := opts.Intel
	if loader == nil {
		loader = intel.NewLoader(nil)
	}
	policies := opts.Policies
	if policies == nil {
		policies = policy.NewLoader("")
		if err := policies.Load(); err != nil {
			log.Error().Err(err).Msg("failed to load default policy")
		}
	}

	return &Engine{
		heuristics: signals.NewHeuristicEngine(),
		brands:     signals.NewBrandDetector(db),
		tld:        signals.NewTldScorer(),
		features:   signals.NewFeatureExtractor(),
		model:      model,
		intel:      loader,
		policies:   policies,
		cedar:      opts.Cedar,
		payloads:   payload.NewAnalyzer(),
		limiter:    NewRateLimiter(opts.ScanLimit),
		audit:      opts.Audit,
	}
}

// Intel returns the bundle loader, for operator update and rollback.
func (e *Engine) Intel() *intel.Loader { return e.intel }

// Analyze runs one decoded QR payload through the pipeline. Malformed
// input never panics and never errors; it lands in an UNKNOWN verdict
// or the text payload branch.
func (e *Engine) Analyze(raw string) Outcome {
	start := time.Now()
	scanID := uuid.NewString()

	if !e.limiter.Allow() {
		metrics.RecordPolicyDecision("rate_limited")
		return Outcome{Kind: OutcomeRateLimited, ScanID: scanID}
	}

	metrics.ScansTotal.Inc()
	defer func() {
		metrics.ScanLatency.Observe(time.Since(start).Seconds())
	}()

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		// Empty input is the one case that yields UNKNOWN.
		return Outcome{
			Kind:        OutcomeURL,
			ScanID:      scanID,
			PayloadType: models.TypeUnknown,
			Assessment: &models.RiskAssessment{
				ID:         scanID,
				Verdict:    models.VerdictUnknown,
				Confidence: 0.05,
			},
		}
	}
	ptype := payload.DetectType(trimmed)

	var out Outcome
	if ptype == models.TypeURL {
		out = e.analyzeURL(scanID, trimmed)
	} else {
		out = e.analyzePayload(scanID, ptype, trimmed)
	}
	e.record(out, time.Since(start))
	return out
}

func (e *Engine) analyzeURL(scanID, rawURL string) Outcome {
	pol := e.policies.Default()

	// Policy pre-pass: allow and block rules short-circuit scoring.
	pre := pol.Evaluate(rawURL)
	switch pre.Action {
	case policy.ActionAllowed:
		return Outcome{
			Kind:        OutcomeURL,
			ScanID:      scanID,
			PayloadType: models.TypeURL,
			Policy:      pre,
			Assessment: &models.RiskAssessment{
				ID:         scanID,
				URL:        rawURL,
				Verdict:    models.VerdictSafe,
				Flags:      []string{"POLICY_ALLOWED"},
				Confidence: 0.99,
			},
		}
	case policy.ActionBlocked:
		return Outcome{
			Kind:        OutcomeURL,
			ScanID:      scanID,
			PayloadType: models.TypeURL,
			Policy:      pre,
			Assessment: &models.RiskAssessment{
				ID:         scanID,
				URL:        rawURL,
				Score:      100,
				Verdict:    models.VerdictMalicious,
				Flags:      []string{"POLICY_BLOCKED", pre.Reason},
				Confidence: 0.99,
			},
		}
	}

	norm := normalizer.Normalize(rawURL)
	host := hostOf(norm.NormalizedURL)
	bundle := e.intel.Current()

	heur := e.heuristics.Evaluate(norm.NormalizedURL)
	brand := e.brands.Detect(host)
	tldScore, tldFlag := e.tld.ScoreWith(host, bundle.Config.ExtraTLDWeights)
	prob := e.model.Predict(e.features.Extract(norm.NormalizedURL))
	hit := host != "" && bundle.Threats.MightContain(host)

	assessment := Aggregate(AggregateInput{
		Normalization: norm,
		Heuristics:    heur,
		Brand:         brand,
		TLDScore:      tldScore,
		TLDFlag:       tldFlag,
		MLProbability: prob,
		BloomHit:      hit,
		BloomPenalty:  bundle.Config.BloomHitPenalty,
	})
	assessment.ID = scanID
	assessment.URL = rawURL

	// Policy post-pass: review threshold, then Cedar overrides.
	post := pol.EvaluateScore(assessment.Score)
	switch post.Action {
	case policy.ActionReview:
		assessment.Flags = appendFlag(assessment.Flags, "REQUIRES_REVIEW")
	case policy.ActionBlocked:
		assessment.Verdict = models.VerdictMalicious
		assessment.Flags = appendFlag(assessment.Flags, "POLICY_BLOCKED")
	}
	if pre.Action == policy.ActionReview {
		assessment.Flags = appendFlag(assessment.Flags, "REQUIRES_REVIEW")
		if post.Action == policy.ActionPassed {
			post = pre
		}
	}

	override := e.cedar.Evaluate(policy.ScanContext{
		Domain: host,
		TLD:    tldOf(host),
		Scheme: schemeOf(norm.NormalizedURL),
		Score:  assessment.Score,
		Flags:  assessment.Flags,
	})
	switch override.Decision {
	case policy.OverrideDeny:
		assessment.Verdict = models.VerdictMalicious
		assessment.Flags = appendFlag(assessment.Flags, "POLICY_OVERRIDE_DENY")
	case policy.OverrideAllow:
		assessment.Verdict = models.VerdictSafe
		assessment.Flags = appendFlag(assessment.Flags, "POLICY_OVERRIDE_ALLOW")
	}

	return Outcome{
		Kind:        OutcomeURL,
		ScanID:      scanID,
		PayloadType: models.TypeURL,
		Assessment:  &assessment,
		Policy:      post,
	}
}

func (e *Engine) analyzePayload(scanID string, ptype models.PayloadType, raw string) Outcome {
	pol := e.policies.Default()

	if r := pol.EvaluatePayloadType(string(ptype)); r.Action == policy.ActionBlocked {
		return Outcome{
			Kind:        OutcomePayload,
			ScanID:      scanID,
			PayloadType: ptype,
			Policy:      r,
			Payload: &models.PayloadAnalysisResult{
				PayloadType:    ptype,
				RiskScore:      100,
				Verdict:        models.PayloadDangerous,
				Signals:        []models.PayloadSignal{{Name: "POLICY_BLOCKED", Description: r.Reason, RiskPoints: 100}},
				Recommendation: "This payload type is blocked by organization policy.",
			},
		}
	}

	result := e.payloads.Analyze(raw)

	// The URL policy applies to links carried inside structured
	// payloads even though scoring never recurses into them.
	var polResult policy.Result
	switch ptype {
	case models.TypeSMS, models.TypeWiFi, models.TypeVCard, models.TypeMeCard, models.TypeEmail:
		polResult = pol.EvaluateEmbedded(raw)
		if polResult.Action == policy.ActionBlocked {
			result.Signals = append(result.Signals, models.PayloadSignal{
				Name:        "POLICY_BLOCKED_EMBEDDED_URL",
				Description: "an embedded link violates organization policy",
				RiskPoints:  40,
			})
			result.RiskScore += 40
			if result.RiskScore > 100 {
				result.RiskScore = 100
			}
			result.Verdict = models.PayloadVerdictForScore(result.RiskScore)
		}
	}

	return Outcome{
		Kind:        OutcomePayload,
		ScanID:      scanID,
		PayloadType: ptype,
		Payload:     &result,
		Policy:      polResult,
	}
}

func (e *Engine) record(out Outcome, elapsed time.Duration) {
	entry := audit.Entry{
		ScanID:      out.ScanID,
		PayloadType: string(out.PayloadType),
		Decision:    out.Policy.Action.String(),
		PolicyRule:  out.Policy.Rule,
		Latency:     elapsed,
	}
	switch out.Kind {
	case OutcomeURL:
		entry.Verdict = string(out.Assessment.Verdict)
		entry.Score = out.Assessment.Score
		entry.Flags = out.Assessment.Flags
		metrics.RecordVerdict(string(out.Assessment.Verdict))
		for _, f := range out.Assessment.Flags {
			metrics.RecordSignal(f)
		}
	case OutcomePayload:
		entry.Verdict = string(out.Payload.Verdict)
		entry.Score = out.Payload.RiskScore
		metrics.RecordVerdict(string(out.Payload.Verdict))
	case OutcomeRateLimited:
		entry.Decision = "rate_limited"
	}
	metrics.RecordPolicyDecision(out.Policy.Action.String())
	e.audit.Log(entry)
}

func appendFlag(flags []string, flag string) []string {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return strings.ToLower(u.Hostname())
	}
	return ""
}

func schemeOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return strings.ToLower(u.Scheme)
	}
	return ""
}

func tldOf(host string) string {
	if net.ParseIP(host) != nil {
		return ""
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return host[i+1:]
	}
	return ""
}
