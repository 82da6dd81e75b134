package signals

import "strings"

// TLD contribution is capped at 10 of the total 100-point budget.
const maxTldScore = 10

// TldScorer assigns risk weight by top-level domain. The static table
// reflects abuse ratios observed in free and cheaply registered TLDs.
type TldScorer struct {
	weights map[string]int
}

// NewTldScorer builds a scorer with the built-in weight table
func NewTldScorer() *TldScorer {
	return &TldScorer{
		weights: map[string]int{
			// free registrations, historically abused
			"tk": 10, "ml": 10, "ga": 10, "cf": 10, "gq": 10,
			// cheap bulk registrations
			"top": 8, "xyz": 7, "zip": 8, "mov": 8, "click": 7,
			"link": 6, "work": 7, "country": 8, "stream": 7,
			"download": 8, "racing": 7, "loan": 8, "bid": 7,
			"men": 7, "date": 7, "review": 7, "win": 7,
			"icu": 6, "cam": 6, "rest": 5, "monster": 5,
			"buzz": 6, "cyou": 6, "quest": 5,
		},
	}
}

// Score returns the TLD weight for host and the matched suffix.
// Unknown TLDs score zero.
func (t *TldScorer) Score(host string) (int, string) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	idx := strings.LastIndexByte(host, '.')
	if idx < 0 || idx == len(host)-1 {
		return 0, ""
	}
	tld := host[idx+1:]
	w := t.weights[tld]
	if w > maxTldScore {
		w = maxTldScore
	}
	if w == 0 {
		return 0, ""
	}
	return w, tld
}

// ScoreWith applies extra per-TLD weights (from an intel bundle) on top
// of the built-in table, keeping the higher of the two.
func (t *TldScorer) ScoreWith(host string, extra map[string]int) (int, string) {
	base, tld := t.Score(host)
	if len(extra) == 0 {
		return base, tld
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	idx := strings.LastIndexByte(host, '.')
	if idx < 0 {
		return base, tld
	}
	suffix := host[idx+1:]
	if w, ok := extra[suffix]; ok && w > base {
		if w > maxTldScore {
			w = maxTldScore
		}
		return w, suffix
	}
	return base, tld
}
