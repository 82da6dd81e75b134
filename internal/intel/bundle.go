package intel

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"
)

// Bundle wire layout: 4B magic "QRSB" | 4B packed version | 8B unix
// timestamp | 32B HMAC-SHA256 signature over the payload | payload.
const (
	bundleMagic      = "QRSB"
	signatureSize    = sha256.Size
	bundleHeaderSize = 4 + 4 + 8 + signatureSize

	// maxBundlePayload caps the JSON payload parsed from a bundle
	maxBundlePayload = 100 * 1024
)

// Version is a monotonic major.minor.patch bundle version, packed on
// the wire as major*10000 + minor*100 + patch.
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// Packed returns the wire encoding of the version
func (v Version) Packed() uint32 {
	return uint32(v.Major*10000 + v.Minor*100 + v.Patch)
}

// UnpackVersion decodes the wire encoding
func UnpackVersion(p uint32) Version {
	return Version{
		Major: int(p / 10000),
		Minor: int(p / 100 % 100),
		Patch: int(p % 100),
	}
}

// Compare returns -1, 0 or 1 comparing v against other
func (v Version) Compare(other Version) int {
	a, b := v.Packed(), other.Packed()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// String formats the version as major.minor.patch
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// RiskConfig is the scoring configuration distributed inside a bundle
type RiskConfig struct {
	// BloomHitPenalty is added to the total when the threat lookup
	// hits; defaults to 40.
	BloomHitPenalty int `json:"bloom_hit_penalty"`
	// ExtraTLDWeights extends the built-in TLD risk table
	ExtraTLDWeights map[string]int `json:"extra_tld_weights,omitempty"`
}

// DefaultRiskConfig returns the compiled-in scoring configuration
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{BloomHitPenalty: 40}
}

// Bundle is one immutable threat-intel snapshot
type Bundle struct {
	Version   Version
	Timestamp time.Time
	Threats   *BloomFilter
	Config    RiskConfig
}

// bundlePayload is the JSON carried after the signed header
type bundlePayload struct {
	Bloom  string     `json:"bloom"` // base64 of the bloom wire format
	Config RiskConfig `json:"config"`
}

// verifySignature checks the HMAC-SHA256 of payload in constant time
func verifySignature(payload, sig, key []byte) bool {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hmac.Equal(sig, mac.Sum(nil))
}

// Sign computes the bundle signature for payload; used by bundle
// producers and by tests.
func Sign(payload, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return mac.Sum(nil)
}

// EncodeBundle assembles the full wire form of a bundle. The inverse
// of the loader's parse path; exported for producers and tests.
func EncodeBundle(version Version, ts time.Time, payload, key []byte) []byte {
	out := make([]byte, 0, bundleHeaderSize+len(payload))
	out = append(out, bundleMagic...)
	out = binary.BigEndian.AppendUint32(out, version.Packed())
	out = binary.BigEndian.AppendUint64(out, uint64(ts.Unix()))
	out = append(out, Sign(payload, key)...)
	out = append(out, payload...)
	return out
}

// MarshalPayload builds the signed portion of a bundle from a bloom
// filter and a risk config.
func MarshalPayload(threats *BloomFilter, cfg RiskConfig) ([]byte, error) {
	return json.Marshal(bundlePayload{
		Bloom:  base64.StdEncoding.EncodeToString(threats.MarshalBinary()),
		Config: cfg,
	})
}

// parsePayload validates and decodes the JSON payload of a verified
// bundle. Bounds are checked before any allocation-heavy decode.
func parsePayload(payload []byte) (*BloomFilter, RiskConfig, error) {
	if len(payload) > maxBundlePayload {
		return nil, RiskConfig{}, fmt.Errorf("bundle payload too large: %d bytes", len(payload))
	}
	var bp bundlePayload
	if err := json.Unmarshal(payload, &bp); err != nil {
		return nil, RiskConfig{}, fmt.Errorf("failed to parse bundle payload: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(bp.Bloom)
	if err != nil {
		return nil, RiskConfig{}, fmt.Errorf("failed to decode bloom snapshot: %w", err)
	}
	bf, err := UnmarshalBloomFilter(raw)
	if err != nil {
		return nil, RiskConfig{}, err
	}
	cfg := bp.Config
	if cfg.BloomHitPenalty <= 0 || cfg.BloomHitPenalty > 100 {
		cfg.BloomHitPenalty = DefaultRiskConfig().BloomHitPenalty
	}
	return bf, cfg, nil
}
