package signals

import (
	"math"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// FeatureCount is the canonical feature-vector length. The extractor
// and the logistic model are compiled against the same constant and
// must stay in lockstep.
const FeatureCount = 15

// FeatureVector holds FeatureCount values, each in [0,1] or {0,1}
type FeatureVector [FeatureCount]float64

// Feature indices, in extraction order.
const (
	featURLLength = iota
	featHostLength
	featDigitRatio
	featLeetSubstitution
	featSubdomainCount
	featIPHost
	featAtSymbol
	featHTTPS
	featPathDepth
	featQueryLength
	featHyphenCount
	featHostEntropy
	featKeywordCount
	featPunycode
	featRiskyTLD
)

var keywordRe = regexp.MustCompile(`(?i)(signin|login|verify|secure|account|update|confirm|password|banking|wallet)`)

var leetFeatureRe = regexp.MustCompile(`[a-z][0134578][a-z]|[a-z]{3,}[0134578]\b`)

// FeatureExtractor turns a URL into the canonical feature vector.
// Pure; safe for concurrent use.
type FeatureExtractor struct {
	tld *TldScorer
}

// NewFeatureExtractor builds an extractor sharing the TLD weight table
func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{tld: NewTldScorer()}
}

// Extract computes the fixed-length feature vector for a URL.
// Every value is clamped to [0,1].
func (e *FeatureExtractor) Extract(rawURL string) FeatureVector {
	var f FeatureVector

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		// degenerate input: max out the structural features
		f[featURLLength] = 1
		return f
	}
	host := strings.ToLower(u.Hostname())

	f[featURLLength] = clamp01(float64(len(rawURL)) / 100.0)
	f[featHostLength] = clamp01(float64(len(host)) / 50.0)
	f[featDigitRatio] = digitRatio(host)
	if leetFeatureRe.MatchString(registrableLabel(host)) {
		f[featLeetSubstitution] = 1
	}
	f[featSubdomainCount] = clamp01(float64(strings.Count(host, ".")) / 5.0)
	if net.ParseIP(host) != nil {
		f[featIPHost] = 1
	}
	if u.User != nil {
		f[featAtSymbol] = 1
	}
	if u.Scheme == "https" {
		f[featHTTPS] = 1
	}
	f[featPathDepth] = clamp01(float64(strings.Count(u.Path, "/")) / 10.0)
	f[featQueryLength] = clamp01(float64(len(u.RawQuery)) / 200.0)
	f[featHyphenCount] = clamp01(float64(strings.Count(host, "-")) / 5.0)
	f[featHostEntropy] = clamp01(shannonEntropy(host) / 5.0)
	f[featKeywordCount] = clamp01(float64(len(keywordRe.FindAllString(rawURL, 5))) / 5.0)
	if strings.Contains(host, "xn--") {
		f[featPunycode] = 1
	}
	if w, _ := e.tld.Score(host); w > 0 {
		f[featRiskyTLD] = 1
	}

	return f
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func digitRatio(s string) float64 {
	if s == "" {
		return 0
	}
	var digits int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return float64(digits) / float64(len(s))
}

func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	var n float64
	for _, r := range s {
		freq[r]++
		n++
	}
	var h float64
	for _, c := range freq {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}
