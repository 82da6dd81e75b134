package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cedar-policy/cedar-go"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// OverrideDecision is a Cedar verdict override.
type OverrideDecision string

const (
	OverrideAllow OverrideDecision = "ALLOW"
	OverrideDeny  OverrideDecision = "DENY"
	OverrideNone  OverrideDecision = "NONE"
)

// OverrideResult reports a Cedar evaluation: the decision and the
// policy that produced it.
type OverrideResult struct {
	Decision OverrideDecision
	PolicyID string
}

// ScanContext is the fact set exposed to Cedar policies for one scan.
type ScanContext struct {
	Domain string
	TLD    string
	Scheme string
	Score  int
	Flags  []string
}

// CedarEngine evaluates org-authored Cedar policies as a final
// override over the scored verdict. Policies are held behind an atomic
// pointer so evaluation never blocks on a reload.
type CedarEngine struct {
	policySet     atomic.Pointer[cedar.PolicySet]
	policyVersion atomic.Pointer[string]
	PolicyPath    string

	watcher    *fsnotify.Watcher
	stopWatch  chan struct{}
	reloadLock sync.Mutex
}

// NewCedarEngine loads Cedar policies from a file. A missing or empty
// path yields a nil engine; callers treat nil as "no overrides".
func NewCedarEngine(policyPath string) (*CedarEngine, error) {
	if policyPath == "" {
		return nil, nil
	}
	e := &CedarEngine{
		PolicyPath: policyPath,
		stopWatch:  make(chan struct{}),
	}
	if err := e.reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// PolicyVersion returns the hash of the loaded policy text.
func (e *CedarEngine) PolicyVersion() string {
	v := e.policyVersion.Load()
	if v == nil {
		return ""
	}
	return *v
}

// StartHotReload watches the policy file for changes.
func (e *CedarEngine) StartHotReload() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(e.PolicyPath); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch cedar policy file: %w", err)
	}
	e.watcher = watcher
	go e.watchLoop()
	log.Info().Str("file", e.PolicyPath).Msg("cedar hot-reload enabled")
	return nil
}

// StopHotReload stops the file watcher.
func (e *CedarEngine) StopHotReload() {
	if e.watcher != nil {
		close(e.stopWatch)
		e.watcher.Close()
	}
}

func (e *CedarEngine) watchLoop() {
	var debounceTimer *time.Timer
	debounce := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounce, func() {
					e.reloadLock.Lock()
					defer e.reloadLock.Unlock()

					old := e.PolicyVersion()
					if err := e.reload(); err != nil {
						log.Error().Err(err).Msg("cedar hot-reload failed")
					} else {
						log.Info().Str("from", old).Str("to", e.PolicyVersion()).Msg("cedar policies reloaded")
					}
				})
			}
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("cedar watcher error")
		case <-e.stopWatch:
			return
		}
	}
}

func (e *CedarEngine) reload() error {
	data, err := os.ReadFile(e.PolicyPath)
	if err != nil {
		return fmt.Errorf("failed to read cedar policy file: %w", err)
	}

	hash := sha256.Sum256(data)
	version := hex.EncodeToString(hash[:])[:12]

	ps := cedar.NewPolicySet()
	chunks := strings.Split(string(data), ";")
	for i, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		var policy cedar.Policy
		if err := policy.UnmarshalCedar([]byte(chunk + ";")); err != nil {
			return fmt.Errorf("failed to parse cedar policy part %d: %w", i, err)
		}
		ps.Add(cedar.PolicyID(fmt.Sprintf("policy%d", i)), &policy)
	}

	e.policySet.Store(ps)
	e.policyVersion.Store(&version)
	return nil
}

// Evaluate runs the scan facts against the Cedar policies. The result
// is honored only when a specific policy matched; Cedar's implicit
// default-deny must not override the scored verdict, so an evaluation
// with no contributing policy returns OverrideNone.
func (e *CedarEngine) Evaluate(ctx ScanContext) OverrideResult {
	if e == nil {
		return OverrideResult{Decision: OverrideNone}
	}
	ps := e.policySet.Load()
	if ps == nil {
		return OverrideResult{Decision: OverrideNone}
	}

	flagValues := make([]cedar.Value, len(ctx.Flags))
	for i, f := range ctx.Flags {
		flagValues[i] = cedar.String(f)
	}

	req := cedar.Request{
		Principal: cedar.NewEntityUID("Org", "default"),
		Action:    cedar.NewEntityUID("Action", "scan"),
		Resource:  cedar.NewEntityUID("URL", "payload"),
		Context: cedar.NewRecord(cedar.RecordMap{
			"domain": cedar.String(ctx.Domain),
			"tld":    cedar.String(ctx.TLD),
			"scheme": cedar.String(ctx.Scheme),
			"score":  cedar.Long(int64(ctx.Score)),
			"flags":  cedar.NewSet(flagValues...),
		}),
	}

	ok, diagnostics := cedar.Authorize(ps, cedar.EntityMap{}, req)
	if len(diagnostics.Reasons) == 0 {
		return OverrideResult{Decision: OverrideNone}
	}
	result := OverrideResult{PolicyID: string(diagnostics.Reasons[0].PolicyID)}
	if ok {
		result.Decision = OverrideAllow
	} else {
		result.Decision = OverrideDeny
	}
	return result
}
