package intel

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/halcyonsec/qrverdict/internal/metrics"
)

// LoadStatus is the closed set of bundle-load outcomes
type LoadStatus int

const (
	LoadSuccess LoadStatus = iota
	LoadNoBundle
	LoadParseError
	LoadInvalidSignature
	LoadVersionError
)

// String names the status for logs and metrics labels
func (s LoadStatus) String() string {
	switch s {
	case LoadSuccess:
		return "success"
	case LoadNoBundle:
		return "no_bundle"
	case LoadParseError:
		return "parse_error"
	case LoadInvalidSignature:
		return "invalid_signature"
	case LoadVersionError:
		return "version_error"
	default:
		return "unknown"
	}
}

// LoadResult reports the outcome of a bundle load. Errors are values:
// loading never panics and never throws.
type LoadResult struct {
	Status  LoadStatus
	Version Version
	Detail  string
}

// Loader owns the process-wide {current, lastKnownGood} bundle pair.
// Reads happen on every analysis; writes only on bundle updates.
// A single RWMutex guarantees readers never observe a partial swap.
type Loader struct {
	mu            sync.RWMutex
	current       *Bundle
	lastKnownGood *Bundle
	key           []byte
}

// NewLoader seeds both slots with the built-in bundle. The key is used
// to verify every subsequently loaded bundle.
func NewLoader(key []byte) *Loader {
	builtin := builtinBundle()
	return &Loader{
		current:       builtin,
		lastKnownGood: builtin,
		key:           key,
	}
}

// Current returns the active bundle. Never nil.
func (l *Loader) Current() *Bundle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// CurrentVersion returns the active bundle version
func (l *Loader) CurrentVersion() Version {
	return l.Current().Version
}

// Load verifies and installs a new bundle. The header is validated
// first, then the anti-downgrade check (strict version increase,
// regardless of signature validity), then the signature over the raw
// payload bytes, and only then is the payload parsed. On any failure
// the active bundle is untouched.
func (l *Loader) Load(data []byte) LoadResult {
	if len(data) == 0 {
		return LoadResult{Status: LoadNoBundle, Detail: "empty bundle"}
	}
	if len(data) < bundleHeaderSize {
		return LoadResult{Status: LoadParseError, Detail: "bundle truncated"}
	}
	if string(data[0:4]) != bundleMagic {
		return LoadResult{Status: LoadParseError, Detail: "bad magic"}
	}

	version := UnpackVersion(binary.BigEndian.Uint32(data[4:8]))
	ts := time.Unix(int64(binary.BigEndian.Uint64(data[8:16])), 0).UTC()
	sig := data[16 : 16+signatureSize]
	payload := data[bundleHeaderSize:]

	l.mu.Lock()
	defer l.mu.Unlock()

	if version.Compare(l.current.Version) <= 0 {
		log.Warn().
			Str("offered", version.String()).
			Str("current", l.current.Version.String()).
			Msg("bundle downgrade rejected")
		return LoadResult{Status: LoadVersionError, Version: version,
			Detail: "version must strictly increase"}
	}

	if !verifySignature(payload, sig, l.key) {
		return LoadResult{Status: LoadInvalidSignature, Version: version,
			Detail: "signature verification failed"}
	}

	threats, cfg, err := parsePayload(payload)
	if err != nil {
		return LoadResult{Status: LoadParseError, Version: version, Detail: err.Error()}
	}

	// Atomic swap: the old current becomes the new lastKnownGood.
	l.lastKnownGood = l.current
	l.current = &Bundle{
		Version:   version,
		Timestamp: ts,
		Threats:   threats,
		Config:    cfg,
	}

	metrics.BundleSwaps.Inc()
	log.Info().
		Str("version", version.String()).
		Time("timestamp", ts).
		Uint32("threat_entries", threats.Count()).
		Msg("intel bundle installed")

	return LoadResult{Status: LoadSuccess, Version: version}
}

// Rollback restores lastKnownGood as the active bundle. Operator
// recovery path for a bad update; reports whether anything changed.
func (l *Loader) Rollback() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastKnownGood == nil || l.lastKnownGood == l.current {
		return false
	}
	l.current = l.lastKnownGood
	metrics.BundleRollbacks.Inc()
	log.Info().Str("version", l.current.Version.String()).Msg("rolled back to last known good bundle")
	return true
}
