package policy

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/halcyonsec/qrverdict/internal/signals"
)

// Engine evaluates one compiled OrgPolicy. Evaluation is stateless and
// deterministic; the compiled form is immutable after construction.
type Engine struct {
	policy          *OrgPolicy
	allowedPatterns []*regexp.Regexp
	blockedPatterns []*regexp.Regexp
	blockedTLDs     map[string]struct{}
	allowedTypes    map[string]struct{}
	shorteners      map[string]bool
}

// NewEngine compiles a policy. Pattern compilation errors are reported
// up front so a broken policy never half-applies.
func NewEngine(p *OrgPolicy) (*Engine, error) {
	if p == nil {
		p = DefaultPolicy()
	}
	e := &Engine{
		policy:      p,
		blockedTLDs: make(map[string]struct{}, len(p.BlockedTLDs)),
		shorteners:  signals.KnownShorteners(),
	}

	for _, pat := range p.AllowedPatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern %q: %w", pat, err)
		}
		e.allowedPatterns = append(e.allowedPatterns, re)
	}
	for _, pat := range p.BlockedPatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid blocked pattern %q: %w", pat, err)
		}
		e.blockedPatterns = append(e.blockedPatterns, re)
	}
	for _, tld := range p.BlockedTLDs {
		e.blockedTLDs[strings.ToLower(strings.TrimPrefix(tld, "."))] = struct{}{}
	}
	if len(p.AllowedPayloadTypes) > 0 {
		e.allowedTypes = make(map[string]struct{}, len(p.AllowedPayloadTypes))
		for _, t := range p.AllowedPayloadTypes {
			e.allowedTypes[strings.ToLower(t)] = struct{}{}
		}
	}
	return e, nil
}

// Policy returns the source policy document.
func (e *Engine) Policy() *OrgPolicy { return e.policy }

// Evaluate applies the URL rule stages in fixed precedence. Each stage
// short-circuits the later ones, so an allow-listed URL is never
// blocked and a pattern block wins over a TLD block.
func (e *Engine) Evaluate(rawURL string) Result {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		parsed = nil
	}
	host := ""
	scheme := ""
	if parsed != nil {
		host = strings.ToLower(parsed.Hostname())
		scheme = strings.ToLower(parsed.Scheme)
	}

	for _, re := range e.allowedPatterns {
		if re.MatchString(rawURL) {
			return Result{Action: ActionAllowed, Rule: re.String()}
		}
	}
	if host != "" {
		for _, d := range e.policy.AllowedDomains {
			if domainMatches(host, d) {
				return Result{Action: ActionAllowed, Rule: d}
			}
		}
	}
	for _, re := range e.blockedPatterns {
		if re.MatchString(rawURL) {
			return Result{Action: ActionBlocked, Reason: ReasonPatternMatch, Rule: re.String()}
		}
	}
	if host != "" {
		for _, d := range e.policy.BlockedDomains {
			if domainMatches(host, d) {
				return Result{Action: ActionBlocked, Reason: ReasonDomainBlocked, Rule: d}
			}
		}
		if tld := lastLabel(host); tld != "" {
			if _, blocked := e.blockedTLDs[tld]; blocked {
				return Result{Action: ActionBlocked, Reason: ReasonTLDBlocked, Rule: tld}
			}
		}
	}
	if e.policy.RequireHTTPS && scheme != "" && scheme != "https" {
		return Result{Action: ActionBlocked, Reason: ReasonHTTPSRequired, Rule: scheme}
	}
	if e.policy.BlockIPHosts && host != "" && net.ParseIP(host) != nil {
		return Result{Action: ActionBlocked, Reason: ReasonIPAddress, Rule: host}
	}
	if e.policy.BlockShorteners && host != "" && e.shorteners[host] {
		return Result{Action: ActionBlocked, Reason: ReasonShortener, Rule: host}
	}
	if e.policy.MaxURLLength > 0 && len(rawURL) > e.policy.MaxURLLength {
		return Result{Action: ActionBlocked, Reason: ReasonLengthExceeded,
			Rule: fmt.Sprintf("max_url_length=%d", e.policy.MaxURLLength)}
	}
	if e.policy.StrictMode && host != "" && strings.Count(host, ".") >= 4 {
		return Result{Action: ActionReview, Rule: host}
	}
	return Passed()
}

// EvaluateScore maps an already-computed risk score through the review
// threshold. Runs after the aggregator, before the verdict is final.
func (e *Engine) EvaluateScore(score int) Result {
	if e.policy.ReviewThreshold > 0 && score >= e.policy.ReviewThreshold {
		r := Result{Action: ActionReview, Reason: ReasonScoreReview,
			Rule: fmt.Sprintf("review_threshold=%d", e.policy.ReviewThreshold)}
		if e.policy.StrictMode {
			r.Action = ActionBlocked
		}
		return r
	}
	return Passed()
}

// EvaluatePayloadType enforces the payload-type allowlist for non-URL
// payloads. An empty allowlist passes everything.
func (e *Engine) EvaluatePayloadType(payloadType string) Result {
	if e.allowedTypes == nil {
		return Passed()
	}
	if _, ok := e.allowedTypes[strings.ToLower(payloadType)]; ok {
		return Passed()
	}
	return Result{Action: ActionBlocked, Reason: ReasonPayloadType, Rule: payloadType}
}

// EvaluateEmbedded applies the URL rules to URLs carried inside a
// structured payload body (SMS text, WiFi SSID fields, vCard entries).
// The strictest outcome wins; Allowed from an embedded URL never
// overrides, since the carrier payload itself was not allow-listed.
func (e *Engine) EvaluateEmbedded(body string) Result {
	worst := Passed()
	for _, u := range embeddedURLPattern.FindAllString(body, 8) {
		r := e.Evaluate(u)
		switch r.Action {
		case ActionBlocked:
			return r
		case ActionReview:
			worst = r
		}
	}
	return worst
}

var embeddedURLPattern = regexp.MustCompile(`https?://[^\s'"<>]+`)

// domainMatches reports whether host matches a policy domain entry.
// A plain entry matches the host and its subdomains; a "*." prefix
// makes the subdomain intent explicit and behaves the same way.
func domainMatches(host, entry string) bool {
	entry = strings.ToLower(strings.TrimSpace(entry))
	entry = strings.TrimPrefix(entry, "*.")
	if entry == "" {
		return false
	}
	return host == entry || strings.HasSuffix(host, "."+entry)
}

func lastLabel(host string) string {
	if net.ParseIP(host) != nil {
		return ""
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return host[i+1:]
	}
	return ""
}
