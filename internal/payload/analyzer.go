package payload

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/halcyonsec/qrverdict/internal/signals"
	"github.com/halcyonsec/qrverdict/pkg/models"
)

var (
	embeddedURLRe = regexp.MustCompile(`(?i)https?://[^\s'"<>]+`)
	// US premium-rate prefixes plus common short-code length
	premiumRateRe = regexp.MustCompile(`(?:^|\D)(1?900\d{7}|1?976\d{7})(?:\D|$)`)
	digitsOnlyRe  = regexp.MustCompile(`\D`)
)

// Analyzer scores non-URL QR payloads. Each payload type owns a fixed
// table of named signals with point weights; the bands differ from the
// URL verdict bands.
type Analyzer struct {
	shorteners map[string]bool
}

// NewAnalyzer constructs a payload analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{shorteners: signals.KnownShorteners()}
}

// Analyze dispatches on the detected payload type and returns a scored
// result. Never returns an error; malformed payloads degrade to the
// text or unknown branch.
func (a *Analyzer) Analyze(raw string) models.PayloadAnalysisResult {
	if len(raw) > maxPayloadLength {
		raw = raw[:maxPayloadLength]
	}
	ptype := DetectType(raw)

	var (
		sigs   []models.PayloadSignal
		parsed map[string]string
	)
	switch ptype {
	case models.TypeWiFi:
		sigs, parsed = a.analyzeWiFi(raw)
	case models.TypeSMS:
		sigs, parsed = a.analyzeSMS(raw)
	case models.TypeVCard, models.TypeMeCard:
		sigs, parsed = a.analyzeContact(raw)
	case models.TypePhone:
		sigs, parsed = a.analyzePhone(raw)
	case models.TypeEmail:
		sigs, parsed = a.analyzeEmail(raw)
	case models.TypeCrypto:
		sigs, parsed = a.analyzeCrypto(raw)
	case models.TypePayment:
		sigs, parsed = a.analyzePayment(raw)
	case models.TypeGeo, models.TypeCalendar:
		sigs = a.embeddedURLSignals(raw)
	case models.TypeText, models.TypeUnknown, models.TypeURL:
		sigs = a.embeddedURLSignals(raw)
	}

	score := 0
	for _, s := range sigs {
		score += s.RiskPoints
	}
	if score > 100 {
		score = 100
	}
	verdict := models.PayloadVerdictForScore(score)

	return models.PayloadAnalysisResult{
		PayloadType:    ptype,
		RiskScore:      score,
		Verdict:        verdict,
		Signals:        sigs,
		ParsedData:     parsed,
		Recommendation: recommendation(ptype, verdict),
	}
}

// analyzeWiFi parses WIFI:T:<auth>;S:<ssid>;P:<pass>;H:<hidden>;
func (a *Analyzer) analyzeWiFi(raw string) ([]models.PayloadSignal, map[string]string) {
	fields := parseSemicolonFields(strings.TrimPrefix(stripPrefixFold(raw, "WIFI:"), ";"))
	parsed := map[string]string{
		"ssid": fields["S"],
		"auth": fields["T"],
	}

	var sigs []models.PayloadSignal
	switch strings.ToUpper(fields["T"]) {
	case "", "NOPASS":
		sigs = append(sigs, models.PayloadSignal{
			Name:        "WIFI_OPEN_NETWORK",
			Description: "network has no authentication, traffic can be intercepted",
			RiskPoints:  35,
		})
	case "WEP":
		sigs = append(sigs, models.PayloadSignal{
			Name:        "WIFI_WEAK_ENCRYPTION",
			Description: "WEP encryption is trivially breakable",
			RiskPoints:  25,
		})
	}
	if strings.EqualFold(fields["H"], "true") {
		sigs = append(sigs, models.PayloadSignal{
			Name:        "WIFI_HIDDEN_SSID",
			Description: "hidden network, common in evil-twin setups",
			RiskPoints:  10,
		})
	}
	if ssid := strings.ToLower(fields["S"]); ssid != "" {
		for _, bait := range []string{"free", "public", "guest", "airport"} {
			if strings.Contains(ssid, bait) {
				sigs = append(sigs, models.PayloadSignal{
					Name:        "WIFI_BAIT_SSID",
					Description: "SSID mimics a free public hotspot",
					RiskPoints:  15,
				})
				break
			}
		}
	}
	return sigs, parsed
}

// analyzeSMS parses SMSTO:<number>:<body> and sms:<number>?body=
func (a *Analyzer) analyzeSMS(raw string) ([]models.PayloadSignal, map[string]string) {
	number, body := splitSMS(raw)
	parsed := map[string]string{"number": number}

	var sigs []models.PayloadSignal
	if premiumRateRe.MatchString(digitsOnly(number)) {
		sigs = append(sigs, models.PayloadSignal{
			Name:        "SMS_PREMIUM_RATE",
			Description: "destination is a premium-rate number",
			RiskPoints:  35,
		})
	}
	if n := digitsOnly(number); len(n) >= 4 && len(n) <= 6 {
		sigs = append(sigs, models.PayloadSignal{
			Name:        "SMS_SHORT_CODE",
			Description: "destination is a carrier short code, often used for paid subscriptions",
			RiskPoints:  20,
		})
	}
	sigs = append(sigs, a.embeddedURLSignals(body)...)
	return sigs, parsed
}

func (a *Analyzer) analyzeContact(raw string) ([]models.PayloadSignal, map[string]string) {
	parsed := map[string]string{}
	if name := vcardField(raw, "FN"); name != "" {
		parsed["name"] = name
	}
	if org := vcardField(raw, "ORG"); org != "" {
		parsed["org"] = org
	}

	var sigs []models.PayloadSignal
	if strings.Count(strings.ToUpper(raw), "URL") > 2 {
		sigs = append(sigs, models.PayloadSignal{
			Name:        "VCARD_MANY_URLS",
			Description: "contact card carries an unusual number of links",
			RiskPoints:  15,
		})
	}
	sigs = append(sigs, a.embeddedURLSignals(raw)...)
	return sigs, parsed
}

func (a *Analyzer) analyzePhone(raw string) ([]models.PayloadSignal, map[string]string) {
	number := stripPrefixFold(raw, "TEL:")
	parsed := map[string]string{"number": number}

	var sigs []models.PayloadSignal
	if premiumRateRe.MatchString(digitsOnly(number)) {
		sigs = append(sigs, models.PayloadSignal{
			Name:        "PHONE_PREMIUM_RATE",
			Description: "premium-rate number, calls incur charges",
			RiskPoints:  35,
		})
	}
	return sigs, parsed
}

func (a *Analyzer) analyzeEmail(raw string) ([]models.PayloadSignal, map[string]string) {
	addr := stripPrefixFold(raw, "MAILTO:")
	if i := strings.IndexByte(addr, '?'); i >= 0 {
		addr = addr[:i]
	}
	parsed := map[string]string{"address": addr}

	var sigs []models.PayloadSignal
	lower := strings.ToLower(raw)
	for _, kw := range []string{"urgent", "verify", "suspended", "invoice", "payment due"} {
		if strings.Contains(lower, kw) {
			sigs = append(sigs, models.PayloadSignal{
				Name:        "EMAIL_PRESSURE_LANGUAGE",
				Description: "prefilled message uses urgency or account-threat language",
				RiskPoints:  20,
			})
			break
		}
	}
	sigs = append(sigs, a.embeddedURLSignals(raw)...)
	return sigs, parsed
}

func (a *Analyzer) analyzeCrypto(raw string) ([]models.PayloadSignal, map[string]string) {
	scheme, rest, _ := strings.Cut(raw, ":")
	address := rest
	if i := strings.IndexByte(address, '?'); i >= 0 {
		address = address[:i]
	}
	parsed := map[string]string{"scheme": strings.ToLower(scheme), "address": address}

	// Any scanned crypto-payment request is inherently risky: transfers
	// are irreversible and the address cannot be visually verified.
	sigs := []models.PayloadSignal{{
		Name:        "CRYPTO_PAYMENT_REQUEST",
		Description: "irreversible cryptocurrency payment request",
		RiskPoints:  30,
	}}
	if strings.Contains(strings.ToLower(raw), "amount=") {
		sigs = append(sigs, models.PayloadSignal{
			Name:        "CRYPTO_PRESET_AMOUNT",
			Description: "payment amount is preset by the QR author",
			RiskPoints:  15,
		})
	}
	return sigs, parsed
}

func (a *Analyzer) analyzePayment(raw string) ([]models.PayloadSignal, map[string]string) {
	parsed := map[string]string{"request": raw}
	sigs := []models.PayloadSignal{{
		Name:        "PAYMENT_REQUEST",
		Description: "payment request from an unverified source",
		RiskPoints:  25,
	}}
	sigs = append(sigs, a.embeddedURLSignals(raw)...)
	return sigs, parsed
}

// embeddedURLSignals flags URLs carried inside a payload body. The
// URLs are reported, not recursively scored through the URL pipeline.
func (a *Analyzer) embeddedURLSignals(body string) []models.PayloadSignal {
	urls := embeddedURLRe.FindAllString(body, 8)
	if len(urls) == 0 {
		return nil
	}
	sigs := []models.PayloadSignal{{
		Name:        "EMBEDDED_URL",
		Description: "payload carries a link the scanner may follow",
		RiskPoints:  20,
	}}
	for _, u := range urls {
		if parsed, err := url.Parse(u); err == nil {
			host := strings.ToLower(parsed.Hostname())
			if a.shorteners[host] {
				sigs = append(sigs, models.PayloadSignal{
					Name:        "EMBEDDED_SHORTENED_URL",
					Description: "embedded link hides its destination behind a shortener",
					RiskPoints:  30,
				})
				break
			}
		}
	}
	return sigs
}

func recommendation(ptype models.PayloadType, v models.PayloadVerdict) string {
	switch v {
	case models.PayloadDangerous:
		return "Do not act on this QR code. It shows strong indicators of fraud."
	case models.PayloadSuspicious:
		return "Treat with caution. Verify the source before acting on this payload."
	case models.PayloadCaution:
		if ptype == models.TypeWiFi {
			return "Connect only if you trust the network operator."
		}
		return "Minor risk indicators found. Review the details before proceeding."
	default:
		return "No significant risk indicators found."
	}
}

// parseSemicolonFields splits "T:WPA;S:ssid;P:pass;;" into a key map,
// honoring backslash escapes for ';' and ':' inside values.
func parseSemicolonFields(s string) map[string]string {
	fields := make(map[string]string)
	var key, val strings.Builder
	inVal := false
	escaped := false
	flush := func() {
		if key.Len() > 0 {
			fields[strings.ToUpper(key.String())] = val.String()
		}
		key.Reset()
		val.Reset()
		inVal = false
	}
	for _, r := range s {
		switch {
		case escaped:
			val.WriteRune(r)
			escaped = false
		case r == '\\' && inVal:
			escaped = true
		case r == ':' && !inVal:
			inVal = true
		case r == ';':
			flush()
		case inVal:
			val.WriteRune(r)
		default:
			key.WriteRune(r)
		}
	}
	flush()
	return fields
}

func splitSMS(raw string) (number, body string) {
	switch {
	case hasPrefixFold(raw, "SMSTO:"):
		rest := raw[len("SMSTO:"):]
		number, body, _ = strings.Cut(rest, ":")
	case hasPrefixFold(raw, "SMS:"):
		rest := raw[len("SMS:"):]
		number, body, _ = strings.Cut(rest, "?")
		if b, ok := strings.CutPrefix(body, "body="); ok {
			if dec, err := url.QueryUnescape(b); err == nil {
				body = dec
			} else {
				body = b
			}
		}
	}
	return number, body
}

func vcardField(raw, field string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if hasPrefixFold(line, field+":") {
			return strings.TrimSpace(line[len(field)+1:])
		}
	}
	return ""
}

func digitsOnly(s string) string { return digitsOnlyRe.ReplaceAllString(s, "") }

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func stripPrefixFold(s, prefix string) string {
	if hasPrefixFold(s, prefix) {
		return s[len(prefix):]
	}
	return s
}
