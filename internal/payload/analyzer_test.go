package payload

import (
	"strings"
	"testing"

	"github.com/halcyonsec/qrverdict/pkg/models"
)

func TestDetectType(t *testing.T) {
	cases := []struct {
		raw  string
		want models.PayloadType
	}{
		{"https://example.com", models.TypeURL},
		{"HTTP://EXAMPLE.COM", models.TypeURL},
		{"WIFI:T:WPA;S:HomeNet;P:secret;;", models.TypeWiFi},
		{"BEGIN:VCARD\nFN:Jane Doe\nEND:VCARD", models.TypeVCard},
		{"MECARD:N:Doe,Jane;;", models.TypeMeCard},
		{"SMSTO:5551234:hello", models.TypeSMS},
		{"sms:5551234?body=hi", models.TypeSMS},
		{"tel:+15551234567", models.TypePhone},
		{"mailto:a@b.com", models.TypeEmail},
		{"bitcoin:1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", models.TypeCrypto},
		{"upi://pay?pa=x@bank", models.TypePayment},
		{"geo:47.6,-122.3", models.TypeGeo},
		{"BEGIN:VEVENT\nSUMMARY:Meet\nEND:VEVENT", models.TypeCalendar},
		{"just some text", models.TypeText},
		{"", models.TypeUnknown},
		{"   ", models.TypeUnknown},
	}
	for _, tc := range cases {
		if got := DetectType(tc.raw); got != tc.want {
			t.Errorf("DetectType(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestWiFiOpenNetwork(t *testing.T) {
	a := NewAnalyzer()
	res := a.Analyze("WIFI:T:nopass;S:Free Airport WiFi;H:true;;")

	if res.PayloadType != models.TypeWiFi {
		t.Fatalf("type = %s", res.PayloadType)
	}
	// open 35 + hidden 10 + bait SSID 15 = 60
	if res.RiskScore < 60 {
		t.Errorf("score = %d, want >= 60", res.RiskScore)
	}
	if res.Verdict != models.PayloadDangerous {
		t.Errorf("verdict = %s, want DANGEROUS", res.Verdict)
	}
	if !hasSignal(res, "WIFI_OPEN_NETWORK") || !hasSignal(res, "WIFI_HIDDEN_SSID") {
		t.Errorf("missing expected signals: %v", signalNames(res))
	}
	if res.ParsedData["ssid"] != "Free Airport WiFi" {
		t.Errorf("ssid = %q", res.ParsedData["ssid"])
	}
}

func TestWiFiWEP(t *testing.T) {
	res := NewAnalyzer().Analyze("WIFI:T:WEP;S:OldRouter;P:abc;;")
	if !hasSignal(res, "WIFI_WEAK_ENCRYPTION") {
		t.Errorf("signals = %v, want WIFI_WEAK_ENCRYPTION", signalNames(res))
	}
	if res.Verdict != models.PayloadCaution {
		t.Errorf("verdict = %s, want CAUTION for score 25", res.Verdict)
	}
}

func TestWiFiWPAIsSafe(t *testing.T) {
	res := NewAnalyzer().Analyze("WIFI:T:WPA;S:HomeNet;P:longsecret;;")
	if res.RiskScore != 0 || res.Verdict != models.PayloadSafe {
		t.Errorf("score=%d verdict=%s, want 0/SAFE", res.RiskScore, res.Verdict)
	}
}

func TestSMSPremiumWithShortenedURL(t *testing.T) {
	res := NewAnalyzer().Analyze("SMSTO:19001234567:Claim your prize at https://bit.ly/x")

	if !hasSignal(res, "SMS_PREMIUM_RATE") {
		t.Errorf("missing SMS_PREMIUM_RATE: %v", signalNames(res))
	}
	if !hasSignal(res, "EMBEDDED_URL") || !hasSignal(res, "EMBEDDED_SHORTENED_URL") {
		t.Errorf("missing embedded URL signals: %v", signalNames(res))
	}
	// 35 + 20 + 30 = 85
	if res.Verdict != models.PayloadDangerous {
		t.Errorf("verdict = %s, want DANGEROUS", res.Verdict)
	}
}

func TestSMSShortCode(t *testing.T) {
	res := NewAnalyzer().Analyze("sms:55555?body=JOIN")
	if !hasSignal(res, "SMS_SHORT_CODE") {
		t.Errorf("signals = %v, want SMS_SHORT_CODE", signalNames(res))
	}
}

func TestPhonePremiumRate(t *testing.T) {
	res := NewAnalyzer().Analyze("tel:1-900-555-1234")
	if !hasSignal(res, "PHONE_PREMIUM_RATE") {
		t.Errorf("signals = %v, want PHONE_PREMIUM_RATE", signalNames(res))
	}
	clean := NewAnalyzer().Analyze("tel:+12065551234")
	if clean.RiskScore != 0 {
		t.Errorf("ordinary number scored %d", clean.RiskScore)
	}
}

func TestVCardParsingAndEmbeddedURL(t *testing.T) {
	card := "BEGIN:VCARD\r\nFN:Jane Doe\r\nORG:Acme\r\nURL:https://tinyurl.com/abc\r\nEND:VCARD"
	res := NewAnalyzer().Analyze(card)

	if res.ParsedData["name"] != "Jane Doe" || res.ParsedData["org"] != "Acme" {
		t.Errorf("parsed = %v", res.ParsedData)
	}
	if !hasSignal(res, "EMBEDDED_SHORTENED_URL") {
		t.Errorf("signals = %v, want EMBEDDED_SHORTENED_URL", signalNames(res))
	}
}

func TestEmailPressureLanguage(t *testing.T) {
	res := NewAnalyzer().Analyze("mailto:billing@example.com?subject=URGENT account suspended")
	if !hasSignal(res, "EMAIL_PRESSURE_LANGUAGE") {
		t.Errorf("signals = %v, want EMAIL_PRESSURE_LANGUAGE", signalNames(res))
	}
	if res.ParsedData["address"] != "billing@example.com" {
		t.Errorf("address = %q", res.ParsedData["address"])
	}
}

func TestCryptoPaymentSignals(t *testing.T) {
	res := NewAnalyzer().Analyze("bitcoin:1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa?amount=0.5")
	if !hasSignal(res, "CRYPTO_PAYMENT_REQUEST") || !hasSignal(res, "CRYPTO_PRESET_AMOUNT") {
		t.Errorf("signals = %v", signalNames(res))
	}
	// 30 + 15 = 45
	if res.Verdict != models.PayloadSuspicious {
		t.Errorf("verdict = %s, want SUSPICIOUS", res.Verdict)
	}
	if res.ParsedData["address"] != "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa" {
		t.Errorf("address = %q", res.ParsedData["address"])
	}
}

func TestPlainTextWithURL(t *testing.T) {
	res := NewAnalyzer().Analyze("visit https://example.com for details")
	if res.PayloadType != models.TypeText {
		t.Fatalf("type = %s", res.PayloadType)
	}
	if !hasSignal(res, "EMBEDDED_URL") {
		t.Errorf("signals = %v, want EMBEDDED_URL", signalNames(res))
	}
}

func TestScoreClampAndLengthBound(t *testing.T) {
	// Oversized payload must be truncated, not rejected.
	res := NewAnalyzer().Analyze("WIFI:T:nopass;S:free guest airport;H:true;;" + strings.Repeat("x", 10000))
	if res.RiskScore > 100 {
		t.Errorf("score %d exceeds clamp", res.RiskScore)
	}
	if res.PayloadType != models.TypeWiFi {
		t.Errorf("type = %s", res.PayloadType)
	}
}

func hasSignal(res models.PayloadAnalysisResult, name string) bool {
	for _, s := range res.Signals {
		if s.Name == name {
			return true
		}
	}
	return false
}

func signalNames(res models.PayloadAnalysisResult) []string {
	out := make([]string, len(res.Signals))
	for i, s := range res.Signals {
		out[i] = s.Name
	}
	return out
}
