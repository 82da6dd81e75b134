package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Loader manages the YAML policy directory: initial load, lookup by
// organization ID, and fsnotify-driven hot reload.
type Loader struct {
	configDir string

	mu        sync.RWMutex
	engines   map[string]*Engine
	defaultID string

	watcher   *fsnotify.Watcher
	stopWatch chan struct{}
}

// NewLoader creates a loader for the given policy directory. An empty
// or missing directory yields the compiled-in default policy.
func NewLoader(configDir string) *Loader {
	return &Loader{
		configDir: configDir,
		engines:   make(map[string]*Engine),
		stopWatch: make(chan struct{}),
	}
}

// Load reads every *.yaml / *.yml file in the policy directory,
// replacing the full engine set. A file that fails to parse or compile
// is skipped with a logged error; it never takes down the other
// policies.
func (l *Loader) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.engines = make(map[string]*Engine)
	l.defaultID = ""

	if _, err := os.Stat(l.configDir); l.configDir == "" || os.IsNotExist(err) {
		l.installDefault()
		return nil
	}

	files, err := filepath.Glob(filepath.Join(l.configDir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to list policy files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(l.configDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to list policy files: %w", err)
	}
	files = append(files, ymlFiles...)

	if len(files) == 0 {
		l.installDefault()
		return nil
	}

	for _, file := range files {
		engine, err := loadFile(file)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("failed to load policy file")
			continue
		}
		p := engine.Policy()
		l.engines[p.ID] = engine
		if p.ID == "default" {
			l.defaultID = p.ID
		}
		log.Info().Str("policy", p.Name).Str("version", p.Version).Msg("loaded policy")
	}

	if len(l.engines) == 0 {
		l.installDefault()
		return nil
	}
	if l.defaultID == "" {
		for id := range l.engines {
			l.defaultID = id
			break
		}
	}
	log.Info().Int("count", len(l.engines)).Str("default", l.defaultID).Msg("policies loaded")
	return nil
}

func (l *Loader) installDefault() {
	engine, _ := NewEngine(DefaultPolicy())
	l.engines[engine.Policy().ID] = engine
	l.defaultID = engine.Policy().ID
	log.Info().Msg("no policy files found, using default policy")
}

func loadFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var p OrgPolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("policy ID is required")
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.Version == "" {
		p.Version = "1.0.0"
	}
	return NewEngine(&p)
}

// Get returns the engine for an organization ID, or nil if unknown.
func (l *Loader) Get(id string) *Engine {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.engines[id]
}

// Default returns the default engine. Never nil.
func (l *Loader) Default() *Engine {
	l.mu.RLock()
	engine := l.engines[l.defaultID]
	l.mu.RUnlock()
	if engine == nil {
		engine, _ = NewEngine(DefaultPolicy())
	}
	return engine
}

// List returns the loaded policy documents.
func (l *Loader) List() []*OrgPolicy {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*OrgPolicy, 0, len(l.engines))
	for _, e := range l.engines {
		out = append(out, e.Policy())
	}
	return out
}

// StartHotReload watches the policy directory and reloads on change.
func (l *Loader) StartHotReload() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(l.configDir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch policy directory: %w", err)
	}
	l.watcher = watcher
	go l.watchLoop()
	log.Info().Str("dir", l.configDir).Msg("policy hot-reload enabled")
	return nil
}

// StopHotReload stops the directory watcher.
func (l *Loader) StopHotReload() {
	if l.watcher != nil {
		close(l.stopWatch)
		l.watcher.Close()
	}
}

func (l *Loader) watchLoop() {
	// Debounce rapid successive writes from editors and sync tools.
	var debounceTimer *time.Timer
	debounce := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounce, func() {
					if err := l.Load(); err != nil {
						log.Error().Err(err).Msg("policy hot-reload failed")
					}
				})
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("policy watcher error")
		case <-l.stopWatch:
			return
		}
	}
}
