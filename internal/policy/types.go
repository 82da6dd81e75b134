// Package policy implements the organization policy layer: YAML-defined
// allow/block rules evaluated deterministically before and after risk
// scoring, plus an optional Cedar override engine for advanced rules.
package policy

// OrgPolicy is the root YAML policy document for one organization.
type OrgPolicy struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`

	// Domain rules. Entries support a leading "*." wildcard which
	// matches the domain itself and any subdomain.
	AllowedDomains []string `yaml:"allowed_domains"`
	BlockedDomains []string `yaml:"blocked_domains"`

	// Regex rules applied to the full normalized URL.
	AllowedPatterns []string `yaml:"allowed_patterns"`
	BlockedPatterns []string `yaml:"blocked_patterns"`

	// TLDs blocked outright, without the leading dot ("tk", "zip").
	BlockedTLDs []string `yaml:"blocked_tlds"`

	RequireHTTPS    bool `yaml:"require_https"`
	BlockIPHosts    bool `yaml:"block_ip_hosts"`
	BlockShorteners bool `yaml:"block_shorteners"`

	// MaxURLLength of 0 means no policy-level length limit.
	MaxURLLength int `yaml:"max_url_length"`

	// StrictMode downgrades RequiresReview outcomes to Blocked.
	StrictMode bool `yaml:"strict_mode"`

	// AllowedPayloadTypes restricts which non-URL payload kinds are
	// accepted; empty means all types pass.
	AllowedPayloadTypes []string `yaml:"allowed_payload_types"`

	// ReviewThreshold is the risk score at or above which a scored URL
	// is flagged for human review; 0 disables review flagging.
	ReviewThreshold int `yaml:"review_threshold"`
}

// Action is the closed set of policy outcomes.
type Action int

const (
	// ActionPassed means no rule matched; scoring decides.
	ActionPassed Action = iota
	// ActionAllowed short-circuits scoring with a SAFE outcome.
	ActionAllowed
	// ActionBlocked short-circuits scoring with a MALICIOUS outcome.
	ActionBlocked
	// ActionReview flags the payload for human review.
	ActionReview
)

func (a Action) String() string {
	switch a {
	case ActionAllowed:
		return "allowed"
	case ActionBlocked:
		return "blocked"
	case ActionReview:
		return "review"
	default:
		return "passed"
	}
}

// Block reasons reported in Result.Reason.
const (
	ReasonPatternMatch   = "PATTERN_MATCH"
	ReasonDomainBlocked  = "DOMAIN_BLOCKED"
	ReasonTLDBlocked     = "TLD_BLOCKED"
	ReasonHTTPSRequired  = "HTTPS_REQUIRED"
	ReasonIPAddress      = "IP_ADDRESS"
	ReasonShortener      = "SHORTENER"
	ReasonLengthExceeded = "LENGTH_EXCEEDED"
	ReasonPayloadType    = "PAYLOAD_TYPE_BLOCKED"
	ReasonScoreReview    = "SCORE_ABOVE_REVIEW_THRESHOLD"
)

// Result is one policy decision with the rule that produced it.
type Result struct {
	Action Action
	Reason string
	Rule   string // the matching domain, pattern or TLD entry
}

// Passed is the zero decision: no rule matched.
func Passed() Result { return Result{Action: ActionPassed} }

// DefaultPolicy returns the compiled-in policy used when no YAML policy
// directory is configured. It blocks nothing outright and relies on
// scoring, with review flagging for high scores.
func DefaultPolicy() *OrgPolicy {
	return &OrgPolicy{
		ID:              "default",
		Name:            "Default Organization Policy",
		Version:         "1.0.0",
		ReviewThreshold: 71,
	}
}
