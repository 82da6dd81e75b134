package main

import (
	"bufio"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/halcyonsec/qrverdict/internal/audit"
	"github.com/halcyonsec/qrverdict/internal/config"
	"github.com/halcyonsec/qrverdict/internal/engine"
	"github.com/halcyonsec/qrverdict/internal/intel"
	"github.com/halcyonsec/qrverdict/internal/policy"
	"github.com/halcyonsec/qrverdict/internal/signals"
	"github.com/halcyonsec/qrverdict/pkg/models"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func main() {
	_ = godotenv.Load()

	scanOnce := flag.String("scan", "", "analyze a single payload and exit")
	bundlePath := flag.String("bundle", "", "intel bundle file to load at startup")
	policyDir := flag.String("policies", "", "organization policy directory")
	flag.Parse()

	cfg := config.Load()
	if *bundlePath != "" {
		cfg.Intel.BundlePath = *bundlePath
	}
	if *policyDir != "" {
		cfg.Policies.Directory = *policyDir
	}
	setupLogging(cfg.Logging.Level)

	eng, cleanup, err := buildEngine(cfg)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	defer cleanup()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics)
	}

	if *scanOnce != "" {
		printOutcome(eng.Analyze(*scanOnce))
		return
	}

	runInteractive(eng)
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func buildEngine(cfg *config.Config) (*engine.Engine, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for _, f := range cleanups {
			f()
		}
	}

	policies := policy.NewLoader(cfg.Policies.Directory)
	if err := policies.Load(); err != nil {
		return nil, cleanup, fmt.Errorf("failed to load policies: %w", err)
	}
	active := policies.List()
	ids := make([]string, 0, len(active))
	for _, p := range active {
		ids = append(ids, p.ID)
	}
	log.Info().Strs("policies", ids).Msg("organization policies active")
	if cfg.Policies.WatchChanges {
		if err := policies.StartHotReload(); err != nil {
			log.Warn().Err(err).Msg("policy hot-reload unavailable")
		} else {
			cleanups = append(cleanups, policies.StopHotReload)
		}
	}

	var cedarEngine *policy.CedarEngine
	if cfg.Policies.CedarFile != "" {
		var err error
		cedarEngine, err = policy.NewCedarEngine(cfg.Policies.CedarFile)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to load cedar policies: %w", err)
		}
	}

	loader := intel.NewLoader([]byte(cfg.Intel.SigningKey))
	if cfg.Intel.BundlePath != "" {
		data, err := os.ReadFile(cfg.Intel.BundlePath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to read intel bundle: %w", err)
		}
		res := loader.Load(data)
		if res.Status != intel.LoadSuccess {
			log.Warn().Str("status", res.Status.String()).Str("detail", res.Detail).
				Msg("intel bundle rejected, using built-in data")
		}
	}

	var brandDB *signals.BrandDatabase
	if cfg.Scoring.BrandDBPath != "" {
		db, err := signals.LoadBrandDatabase(cfg.Scoring.BrandDBPath)
		if err != nil {
			log.Warn().Err(err).Msg("brand database rejected, using built-in set")
		} else {
			brandDB = db
		}
	}

	model := signals.DefaultModel()
	if cfg.Scoring.ModelWeightsPath != "" {
		data, err := os.ReadFile(cfg.Scoring.ModelWeightsPath)
		if err != nil {
			log.Warn().Err(err).Msg("model weights unreadable, using defaults")
		} else {
			model = signals.LoadModelWeightsOrDefault(data)
		}
	}

	auditLog, err := audit.NewLogger(cfg.Logging.AuditFile)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to open audit log: %w", err)
	}
	cleanups = append(cleanups, func() { auditLog.Close() })

	eng := engine.New(engine.Options{
		BrandDB:   brandDB,
		Model:     model,
		Intel:     loader,
		Policies:  policies,
		Cedar:     cedarEngine,
		Audit:     auditLog,
		ScanLimit: cfg.ScansPerMinute,
	})
	return eng, cleanup, nil
}

func serveMetrics(cfg config.MetricsConfig) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Endpoint, promhttp.Handler())
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Str("endpoint", cfg.Endpoint).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}

func runInteractive(eng *engine.Engine) {
	fmt.Println(colorCyan + colorBold + `
╔═══════════════════════════════════════════════════════════╗
║            QRVERDICT - QR Payload Risk Scanner            ║
║      Paste a decoded QR payload to get a risk verdict     ║
║               Type 'exit' or 'quit' to exit               ║
╚═══════════════════════════════════════════════════════════╝` + colorReset)
	fmt.Println()
	fmt.Printf("%s[✓] Engine initialized%s (intel bundle v%s)\n\n",
		colorGreen, colorReset, eng.Intel().CurrentVersion())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 128*1024)

	for {
		fmt.Printf("%s%s> %s", colorBold, colorBlue, colorReset)
		if !scanner.Scan() {
			break
		}
		payload := strings.TrimSpace(scanner.Text())
		if payload == "" {
			continue
		}
		if payload == "exit" || payload == "quit" {
			fmt.Println(colorCyan + "Goodbye!" + colorReset)
			break
		}
		printOutcome(eng.Analyze(payload))
		fmt.Println()
	}
}

func printOutcome(out engine.Outcome) {
	fmt.Println()
	switch out.Kind {
	case engine.OutcomeRateLimited:
		fmt.Printf("%s%s  ⏳ RATE LIMITED  %s scan refused, try again later\n",
			colorBold, colorYellow, colorReset)
	case engine.OutcomeURL:
		printAssessment(out.Assessment)
	case engine.OutcomePayload:
		printPayload(out)
	}
}

func printAssessment(a *models.RiskAssessment) {
	switch a.Verdict {
	case models.VerdictSafe:
		fmt.Printf("%s%s  ✅ SAFE  %s\n", colorBold, colorGreen, colorReset)
	case models.VerdictSuspicious:
		fmt.Printf("%s%s  ⚠️  SUSPICIOUS  %s\n", colorBold, colorYellow, colorReset)
	case models.VerdictMalicious:
		fmt.Printf("%s%s  🛑 MALICIOUS  %s\n", colorBold, colorRed, colorReset)
	default:
		fmt.Printf("%s  ❔ UNKNOWN  %s\n", colorBold, colorReset)
	}

	fmt.Printf("%s┌─ Assessment ───────────────────────────────────────%s\n", colorYellow, colorReset)
	fmt.Printf("│ Score:      %d/100\n", a.Score)
	fmt.Printf("│ Confidence: %.0f%%\n", a.Confidence*100)
	fmt.Printf("│ Heuristics: %d  Brand: %d  TLD: %d  ML: %d  Obfuscation: %d\n",
		a.Details.Heuristics, a.Details.Brand, a.Details.TLD, a.Details.ML, a.Details.Normalization)
	if a.Details.IntelHit {
		fmt.Printf("│ Intel:      %sknown threat (+%d)%s\n", colorRed, a.Details.IntelPenalty, colorReset)
	}
	fmt.Printf("%s└────────────────────────────────────────────────────%s\n", colorYellow, colorReset)

	if len(a.Flags) > 0 {
		fmt.Printf("%s┌─ Signals ──────────────────────────────────────────%s\n", colorCyan, colorReset)
		for _, f := range a.Flags {
			fmt.Printf("│ %s\n", f)
		}
		fmt.Printf("%s└────────────────────────────────────────────────────%s\n", colorCyan, colorReset)
	}
}

func printPayload(out engine.Outcome) {
	p := out.Payload
	switch p.Verdict {
	case models.PayloadSafe:
		fmt.Printf("%s%s  ✅ SAFE  %s(%s)\n", colorBold, colorGreen, colorReset, p.PayloadType)
	case models.PayloadCaution:
		fmt.Printf("%s%s  ⚠️  CAUTION  %s(%s)\n", colorBold, colorYellow, colorReset, p.PayloadType)
	case models.PayloadSuspicious:
		fmt.Printf("%s%s  ⚠️  SUSPICIOUS  %s(%s)\n", colorBold, colorYellow, colorReset, p.PayloadType)
	case models.PayloadDangerous:
		fmt.Printf("%s%s  🛑 DANGEROUS  %s(%s)\n", colorBold, colorRed, colorReset, p.PayloadType)
	}

	fmt.Printf("%s┌─ Analysis ─────────────────────────────────────────%s\n", colorYellow, colorReset)
	fmt.Printf("│ Score: %d/100\n", p.RiskScore)
	for _, s := range p.Signals {
		fmt.Printf("│ %s (+%d): %s\n", s.Name, s.RiskPoints, s.Description)
	}
	for k, v := range p.ParsedData {
		fmt.Printf("│ %s: %s\n", k, v)
	}
	fmt.Printf("%s└────────────────────────────────────────────────────%s\n", colorYellow, colorReset)
	fmt.Printf("%sRecommendation:%s %s\n", colorBold, colorReset, p.Recommendation)
}
