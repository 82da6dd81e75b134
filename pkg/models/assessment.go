package models

// SignalBreakdown records the per-signal contribution to the final score
type SignalBreakdown struct {
	Heuristics    int  `json:"heuristics"`
	Brand         int  `json:"brand"`
	TLD           int  `json:"tld"`
	ML            int  `json:"ml"`
	Normalization int  `json:"normalization"`
	IntelHit      bool `json:"intel_hit"`
	IntelPenalty  int  `json:"intel_penalty"`
}

// RiskAssessment is the immutable result of a single URL analysis.
// Score is always clamp(sum of weighted contributions, 0, 100) and the
// verdict follows VerdictForScore unless policy overrode it.
type RiskAssessment struct {
	ID         string          `json:"id"`
	URL        string          `json:"url"`
	Score      int             `json:"score"`
	Verdict    Verdict         `json:"verdict"`
	Flags      []string        `json:"flags"`
	Details    SignalBreakdown `json:"details"`
	Confidence float64         `json:"confidence"`
}

// PayloadType identifies the kind of decoded QR payload
type PayloadType string

const (
	TypeURL      PayloadType = "url"
	TypeWiFi     PayloadType = "wifi"
	TypeVCard    PayloadType = "vcard"
	TypeMeCard   PayloadType = "mecard"
	TypeSMS      PayloadType = "sms"
	TypePhone    PayloadType = "phone"
	TypeEmail    PayloadType = "email"
	TypeCrypto   PayloadType = "crypto"
	TypePayment  PayloadType = "payment"
	TypeGeo      PayloadType = "geo"
	TypeCalendar PayloadType = "calendar"
	TypeText     PayloadType = "text"
	TypeUnknown  PayloadType = "unknown"
)

// PayloadSignal is a single named risk indicator found in a non-URL payload
type PayloadSignal struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	RiskPoints  int    `json:"risk_points"`
}

// PayloadAnalysisResult is the outcome of analyzing a non-URL payload
type PayloadAnalysisResult struct {
	PayloadType    PayloadType       `json:"payload_type"`
	RiskScore      int               `json:"risk_score"`
	Verdict        PayloadVerdict    `json:"verdict"`
	Signals        []PayloadSignal   `json:"signals"`
	ParsedData     map[string]string `json:"parsed_data,omitempty"`
	Recommendation string            `json:"recommendation"`
}
