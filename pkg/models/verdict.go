package models

// Verdict is the final classification of a scanned URL
type Verdict string

const (
	VerdictSafe       Verdict = "SAFE"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictMalicious  Verdict = "MALICIOUS"
	VerdictUnknown    Verdict = "UNKNOWN"
)

// URL verdict thresholds: score <= SafeThreshold is SAFE,
// score >= MaliciousThreshold is MALICIOUS, everything between is SUSPICIOUS.
const (
	SafeThreshold      = 30
	MaliciousThreshold = 71
)

// VerdictForScore maps a 0-100 risk score to a verdict
func VerdictForScore(score int) Verdict {
	switch {
	case score >= MaliciousThreshold:
		return VerdictMalicious
	case score > SafeThreshold:
		return VerdictSuspicious
	default:
		return VerdictSafe
	}
}

// PayloadVerdict classifies non-URL QR payloads.
// Bands are intentionally different from URL verdicts.
type PayloadVerdict string

const (
	PayloadSafe       PayloadVerdict = "SAFE"
	PayloadCaution    PayloadVerdict = "CAUTION"
	PayloadSuspicious PayloadVerdict = "SUSPICIOUS"
	PayloadDangerous  PayloadVerdict = "DANGEROUS"
)

// PayloadVerdictForScore maps a payload risk score to its band:
// <10 SAFE, 10-29 CAUTION, 30-59 SUSPICIOUS, >=60 DANGEROUS.
func PayloadVerdictForScore(score int) PayloadVerdict {
	switch {
	case score >= 60:
		return PayloadDangerous
	case score >= 30:
		return PayloadSuspicious
	case score >= 10:
		return PayloadCaution
	default:
		return PayloadSafe
	}
}
