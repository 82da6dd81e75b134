// Package payload classifies and scores non-URL QR payloads: WiFi
// credentials, contact cards, SMS composers, crypto addresses and the
// rest of the QR payload zoo.
package payload

import (
	"regexp"
	"strings"

	"github.com/halcyonsec/qrverdict/pkg/models"
)

// maxPayloadLength bounds text processing on untrusted payloads.
const maxPayloadLength = 4096

var urlSchemeRe = regexp.MustCompile(`(?i)^https?://`)

// DetectType classifies a raw decoded QR payload by its leading
// marker. Detection is prefix-based and case-insensitive for the
// scheme-like markers; structured formats (vCard, vEvent) use their
// BEGIN sentinel.
func DetectType(raw string) models.PayloadType {
	s := strings.TrimSpace(raw)
	if s == "" {
		return models.TypeUnknown
	}
	upper := strings.ToUpper(s)

	switch {
	case urlSchemeRe.MatchString(s):
		return models.TypeURL
	case strings.HasPrefix(upper, "WIFI:"):
		return models.TypeWiFi
	case strings.HasPrefix(upper, "BEGIN:VCARD"):
		return models.TypeVCard
	case strings.HasPrefix(upper, "MECARD:"):
		return models.TypeMeCard
	case strings.HasPrefix(upper, "SMSTO:") || strings.HasPrefix(upper, "SMS:"):
		return models.TypeSMS
	case strings.HasPrefix(upper, "TEL:"):
		return models.TypePhone
	case strings.HasPrefix(upper, "MAILTO:") || strings.HasPrefix(upper, "MATMSG:"):
		return models.TypeEmail
	case strings.HasPrefix(upper, "BITCOIN:") || strings.HasPrefix(upper, "ETHEREUM:") ||
		strings.HasPrefix(upper, "LITECOIN:") || strings.HasPrefix(upper, "MONERO:"):
		return models.TypeCrypto
	case strings.HasPrefix(upper, "UPI://") || strings.HasPrefix(upper, "PAYPAL.ME/") ||
		strings.HasPrefix(upper, "VENMO://"):
		return models.TypePayment
	case strings.HasPrefix(upper, "GEO:"):
		return models.TypeGeo
	case strings.HasPrefix(upper, "BEGIN:VEVENT") || strings.HasPrefix(upper, "BEGIN:VCALENDAR"):
		return models.TypeCalendar
	default:
		return models.TypeText
	}
}
