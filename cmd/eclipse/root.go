package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/berylliumsec/eclipse-go/config"
	"github.com/berylliumsec/eclipse-go/history"
	"github.com/berylliumsec/eclipse-go/model"
	"github.com/berylliumsec/eclipse-go/ner"
	"github.com/berylliumsec/eclipse-go/netutil"
	"github.com/berylliumsec/eclipse-go/report"
)

var (
	promptText string
	inputFile  string
	modelDir   string
	outputPath string
	delimiter  string
	device     string
	debugMode  bool
	configPath string

	rootCmd = &cobra.Command{
		Use:   "eclipse",
		Short: "Flag sensitive information in text using a pretrained token-classification model",
		Long: `Eclipse downloads a pretrained token-classification model and runs it
over user-supplied text, reporting which lines carry network data,
credentials, or personal data versus benign content.`,
		RunE: runScan,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&promptText, "prompt", "p", "", "Direct text prompt for recognizing entities")
	rootCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Path to a text file to read prompts from")
	rootCmd.Flags().StringVarP(&modelDir, "model-path", "m", "", "Path to the pretrained model directory")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "output.html", "Path to the output HTML file")
	rootCmd.Flags().StringVarP(&delimiter, "delimiter", "d", "\n", "Delimiter to separate text inputs")
	rootCmd.Flags().StringVar(&device, "device", "", "Compute device preference (cpu or cuda)")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Display label and confidence for every line")
	rootCmd.Flags().StringVar(&configPath, "config", "eclipse.yaml", "Path to YAML config file")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if err := config.LoadFile(configPath, cfg); err != nil {
		return err
	}
	config.LoadEnv(cfg)
	if modelDir != "" {
		cfg.Model.Dir = modelDir
	}
	if device != "" {
		cfg.Model.Device = device
	}
	if debugMode {
		cfg.Logging.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Release: "eclipse-go@" + Version}); err != nil {
			log.Printf("[CLI] Sentry initialization failed: %v", err)
		}
	}
	defer sentry.Flush(2 * time.Second)

	runID := uuid.NewString()
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("run_id", runID)
	})

	ctx := context.Background()
	online := netutil.InternetAvailable()
	if !online {
		report.Errorf("No internet connection available. Skipping version check.")
	}
	checkLatestVersion(online)

	if err := model.Sync(ctx, model.SyncOptions{
		URL:     cfg.Model.ArchiveURL,
		Dir:     cfg.Model.Dir,
		Online:  func() bool { return online },
		Confirm: confirmRefresh,
	}); err != nil {
		// A failed fetch leaves partial state; the user retries next run
		// against whatever local store survives.
		report.Errorf("Model download failed: %v", err)
		sentry.CaptureException(err)
	}

	engine := newEngine(cfg)
	if engine != nil {
		defer func() {
			if err := engine.Close(); err != nil {
				log.Printf("[CLI] Warning: failed to close engine: %v", err)
			}
		}()
	}

	sink := newHistorySink(ctx, cfg)
	if sink != nil {
		defer func() {
			if err := sink.Close(); err != nil {
				log.Printf("[CLI] Warning: failed to close history database: %v", err)
			}
		}()
	}

	classify := func(text string) ner.LineResult {
		result := classifyLine(ctx, engine, text)
		if sink != nil {
			if err := sink.StoreResult(ctx, runID, result); err != nil {
				log.Printf("[CLI] Warning: failed to record result: %v", err)
			}
		}
		return result
	}

	switch {
	case promptText != "":
		report.PrintResult(classify(promptText))
	case inputFile != "":
		runFile(classify, cfg)
	default:
		fmt.Println("No input provided. Please use --prompt or --file to provide input text for entity recognition.")
	}
	return nil
}

// runFile classifies every non-empty line of the input file and writes the
// HTML report. A missing input file ends the run without producing output.
func runFile(classify func(string) ner.LineResult, cfg *config.Config) {
	data, err := os.ReadFile(inputFile) // #nosec G304 - input path is supplied by the operator
	if err != nil {
		report.Errorf("The file %s was not found.", inputFile)
		return
	}

	var results []ner.LineResult
	for _, line := range splitInput(string(data), delimiter) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		results = append(results, classify(line))
	}

	if err := report.WriteHTML(outputPath, results, cfg.Logging.Debug); err != nil {
		report.Errorf("Failed to write output: %v", err)
		return
	}
	report.Successf("Output written to %s", outputPath)
}

// classifyLine converts any engine failure into the neutral verdict so a
// batch run never aborts on a single bad line.
func classifyLine(ctx context.Context, engine *ner.Engine, text string) ner.LineResult {
	if engine == nil {
		return ner.NeutralResult(text)
	}
	result, err := engine.Classify(ctx, text)
	if err != nil {
		log.Printf("[CLI] Classification failed for line: %v", err)
		sentry.CaptureException(err)
		return ner.NeutralResult(text)
	}
	return result
}

// newEngine loads the inference engine. Failure is reported but does not
// end the run; every line then gets the neutral verdict.
func newEngine(cfg *config.Config) *ner.Engine {
	labels, err := ner.LoadLabels(ner.LabelsPath(cfg.Model.Dir))
	if err != nil {
		log.Printf("[CLI] Using built-in label mappings: %v", err)
		labels = ner.DefaultLabels()
	}

	engine, err := ner.NewEngine(cfg.Model.Dir, labels, cfg.Model.Device)
	if err != nil {
		report.Errorf("Failed to load model from %s: %v", cfg.Model.Dir, err)
		sentry.CaptureException(err)
		return nil
	}
	return engine
}

// newHistorySink opens the optional Postgres scan-history database.
func newHistorySink(ctx context.Context, cfg *config.Config) history.ScanDB {
	if !cfg.Database.Enabled {
		return nil
	}
	db, err := history.NewPostgresScanDB(cfg.Database)
	if err != nil {
		report.Errorf("Scan history database unavailable: %v", err)
		return nil
	}
	if cfg.Database.CleanupHours > 0 {
		olderThan := time.Duration(cfg.Database.CleanupHours) * time.Hour
		if removed, err := db.CleanupOldRuns(ctx, olderThan); err != nil {
			log.Printf("[CLI] Warning: history cleanup failed: %v", err)
		} else if removed > 0 {
			log.Printf("[CLI] Removed %d old history rows", removed)
		}
	}
	return db
}

// confirmRefresh asks before replacing an existing model store. Declining
// keeps the stale copy, which matters for users on slow links.
func confirmRefresh(message string) bool {
	var confirmed bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(message).
			Affirmative("Yes").
			Negative("No").
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		log.Printf("[CLI] Confirmation prompt failed, keeping existing model: %v", err)
		return false
	}
	return confirmed
}

// splitInput splits file content on the configured delimiter. The default
// newline delimiter also swallows carriage returns so Windows files work.
func splitInput(content, delim string) []string {
	if delim == "\n" || delim == `\n` {
		return strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	}
	return strings.Split(content, delim)
}
