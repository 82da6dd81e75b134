package signals

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

// Heuristics contribution is capped at 40 of the total 100-point budget.
const maxHeuristicScore = 40

// HeuristicResult carries the rule-based score and the named flags that
// fired.
type HeuristicResult struct {
	Score int      `json:"score"`
	Flags []string `json:"flags,omitempty"`
}

// HeuristicEngine runs fast regex and structural checks over a
// normalized URL. Stateless after construction; safe for concurrent
// use.
type HeuristicEngine struct {
	credentialRe *regexp.Regexp
	leetRe       *regexp.Regexp
	shorteners   map[string]bool
}

// NewHeuristicEngine compiles the rule set
func NewHeuristicEngine() *HeuristicEngine {
	return &HeuristicEngine{
		credentialRe: regexp.MustCompile(`(?i)(signin|sign-in|login|log-in|verify|verification|secure|account|update|confirm|password|banking|wallet|auth)`),
		leetRe:       regexp.MustCompile(`[a-z][0134578][a-z]|[a-z]{3,}[0134578]\b`),
		shorteners:   KnownShorteners(),
	}
}

// KnownShorteners returns the built-in URL shortener host set
func KnownShorteners() map[string]bool {
	return map[string]bool{
		"bit.ly": true, "tinyurl.com": true, "t.co": true,
		"goo.gl": true, "is.gd": true, "ow.ly": true,
		"buff.ly": true, "rebrand.ly": true, "cutt.ly": true,
		"rb.gy": true, "tiny.cc": true, "shorturl.at": true,
		"v.gd": true, "qr.ae": true, "s.id": true,
	}
}

type heuristicCheck struct {
	flag   string
	points int
	match  func(u *url.URL, raw string) bool
}

// Evaluate runs every rule against the URL and sums the weights,
// capped at the heuristics budget. Unparseable input scores the cap's
// midpoint with a single flag.
func (h *HeuristicEngine) Evaluate(rawURL string) HeuristicResult {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return HeuristicResult{Score: maxHeuristicScore / 2, Flags: []string{"UNPARSEABLE_URL"}}
	}
	host := strings.ToLower(u.Hostname())

	checks := []heuristicCheck{
		{"CREDENTIAL_KEYWORD", 10, func(u *url.URL, _ string) bool {
			return h.credentialRe.MatchString(u.Path) || h.credentialRe.MatchString(u.RawQuery)
		}},
		{"LEET_SUBSTITUTION", 12, func(u *url.URL, _ string) bool {
			return h.leetRe.MatchString(registrableLabel(host))
		}},
		{"AT_SYMBOL", 12, func(u *url.URL, _ string) bool {
			return u.User != nil
		}},
		{"NO_HTTPS", 8, func(u *url.URL, _ string) bool {
			return u.Scheme == "http"
		}},
		{"NONSTANDARD_PORT", 8, func(u *url.URL, _ string) bool {
			p := u.Port()
			return p != "" && p != "80" && p != "443"
		}},
		{"EXCESSIVE_SUBDOMAINS", 10, func(u *url.URL, _ string) bool {
			return strings.Count(host, ".") >= 4
		}},
		{"LONG_URL", 6, func(_ *url.URL, raw string) bool {
			return len(raw) > 100
		}},
		{"MANY_HYPHENS", 8, func(u *url.URL, _ string) bool {
			return strings.Count(host, "-") >= 3
		}},
		{"SHORTENER_HOST", 10, func(u *url.URL, _ string) bool {
			return h.shorteners[host]
		}},
		{"IP_HOST", 12, func(u *url.URL, _ string) bool {
			return net.ParseIP(host) != nil
		}},
	}

	var res HeuristicResult
	for _, c := range checks {
		if c.match(u, rawURL) {
			res.Flags = append(res.Flags, c.flag)
			res.Score += c.points
		}
	}
	if res.Score > maxHeuristicScore {
		res.Score = maxHeuristicScore
	}
	return res
}

// registrableLabel returns the label left of the public suffix,
// approximated as the second-to-last dot-separated label.
func registrableLabel(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	return labels[len(labels)-2]
}
