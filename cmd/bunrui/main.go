// Package main is the bunrui CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/bunrui/internal/cli"
	"github.com/hyperjump/bunrui/internal/config"
	"github.com/hyperjump/bunrui/internal/dbctx"
	"github.com/hyperjump/bunrui/internal/entityquality"
	"github.com/hyperjump/bunrui/internal/extract"
	"github.com/hyperjump/bunrui/internal/fileid"
	"github.com/hyperjump/bunrui/internal/lexicon"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/server"
	"github.com/hyperjump/bunrui/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/bunrui/config.yaml"

// loadConfig loads config from path. When path is the default and config.yaml exists in
// the current directory, that file is used instead. Returns the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	switch command {
	case "server":
		runServer(args)
	case "predict":
		runPredict(args)
	case "learn":
		runLearn(args)
	case "train":
		runTrain(args)
	case "retrain":
		runRetrain(args)
	case "sync-blacklist":
		runSyncBlacklist(args)
	case "overlaps":
		runOverlaps(args)
	case "score-entity":
		runScoreEntity(args)
	case "seed-lexicon":
		runSeedLexicon(args)
	case "status":
		runStatus(args)
	case "version", "--version", "-v":
		fmt.Printf("bunrui version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// bootstrap loads config, builds the logger and opens every component.
func bootstrap(configPath string, debug bool) (*config.Config, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	components, err := initializeComponents(context.Background(), cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

func parseOutput(s string) cli.OutputFormat {
	format, err := cli.ParseFormat(s)
	if err != nil {
		fatalf("%v; use text or json", err)
	}
	return format
}

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, logger, components := bootstrap(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := components.Invalidator.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("cache invalidation subscriber stopped", zap.Error(err))
		}
	}()

	var lexWatcher *lexicon.Watcher
	if cfg.Storage.WatchLexicon && cfg.Storage.LexiconDir != "" {
		lexWatcher = lexicon.SeedWatcher(components.Lexicons, cfg.Storage.LexiconDir, logger.Named("lexicon"))
		if err := lexWatcher.Start(ctx); err != nil {
			logger.Fatal("Failed to start lexicon watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(components.Engine, &cfg.Server, logger.Named("http"))
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if lexWatcher != nil {
		lexWatcher.Stop()
	}
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// readDocument returns the text of --file when set, else the positional arguments joined.
func readDocument(path string, args []string) string {
	if path == "" {
		return strings.TrimSpace(strings.Join(args, " "))
	}
	text, err := extract.NewExtractor(0).Extract(path)
	if err != nil {
		fatalf("Failed to read %s: %v", path, err)
	}
	return text
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runPredict(args []string) {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use direct storage)")
	userID := fs.String("user", "", "user id (required)")
	lang := fs.String("lang", models.DefaultLanguage, "document language")
	file := fs.String("file", "", "document file (pdf, docx, xlsx, odt, rtf, txt)")
	keywords := fs.String("keywords", "", "comma separated keywords instead of extraction")
	categories := fs.String("categories", "", "comma separated candidate category ids")
	docID := fs.String("doc", "", "document id (default derived from file or text)")
	index := fs.Bool("index", false, "add the document text to the corpus index")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args))
	format := parseOutput(*output)

	text := readDocument(*file, fs.Args())
	req := &models.PredictRequest{
		DocumentID:  fileid.Resolve(*docID, *file, text),
		Text:        text,
		Keywords:    splitList(*keywords),
		Language:    *lang,
		UserID:      *userID,
		CategoryIDs: splitList(*categories),
	}
	path := "/api/v1/predict"
	if *index {
		path = "/api/v1/classify"
	}

	var (
		pred  *models.Prediction
		names map[string]string
		err   error
	)
	if *serverURL != "" {
		pred = &models.Prediction{}
		err = postJSON(*serverURL, path, req, pred)
	} else {
		_, logger, components := bootstrap(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		ctx := context.Background()
		if *index {
			pred, err = components.Engine.ClassifyText(ctx, req)
		} else {
			pred, err = components.Engine.PredictCategory(ctx, req)
		}
		if err == nil {
			names = categoryNames(ctx, components, req.UserID)
		}
	}
	if err != nil {
		fatalf("Prediction failed: %v", err)
	}
	if err := cli.WritePrediction(os.Stdout, pred, names, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func categoryNames(ctx context.Context, c *Components, userID string) map[string]string {
	cats, err := c.Engine.Repos().Categories.ListActiveByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil
	}
	names := make(map[string]string, len(cats))
	for _, cat := range cats {
		names[cat.ID] = cat.Name
	}
	return names
}

func runLearn(args []string) {
	fs := flag.NewFlagSet("learn", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use direct storage)")
	userID := fs.String("user", "", "user id (required)")
	primary := fs.String("category", "", "primary category id chosen by the user (required)")
	secondary := fs.String("secondary", "", "comma separated secondary category ids")
	predicted := fs.String("predicted", "", "category id the classifier suggested")
	confidence := fs.Float64("confidence", -1, "confidence of the suggestion in [0,1]")
	lang := fs.String("lang", models.DefaultLanguage, "document language")
	file := fs.String("file", "", "document file")
	keywords := fs.String("keywords", "", "comma separated keywords instead of extraction")
	docID := fs.String("doc", "", "document id (default derived from file or text)")
	_ = fs.Parse(reorderArgs(args))

	text := readDocument(*file, fs.Args())
	req := &models.LearnRequest{
		DocumentID:           fileid.Resolve(*docID, *file, text),
		Keywords:             splitList(*keywords),
		Text:                 text,
		PrimaryCategoryID:    *primary,
		SecondaryCategoryIDs: splitList(*secondary),
		Language:             *lang,
		UserID:               *userID,
	}
	if *predicted != "" {
		req.AIPredictedCategoryID = predicted
	}
	if *confidence >= 0 {
		req.AIConfidence = confidence
	}

	var learned bool
	if *serverURL != "" {
		var out struct {
			Learned bool `json:"learned"`
		}
		if err := postJSON(*serverURL, "/api/v1/learn", req, &out); err != nil {
			fatalf("Learning failed: %v", err)
		}
		learned = out.Learned
	} else {
		_, logger, components := bootstrap(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		var err error
		if learned, err = components.Engine.LearnFromClassification(context.Background(), req); err != nil {
			fatalf("Learning failed: %v", err)
		}
	}
	if learned {
		fmt.Println("Learned from classification")
	} else {
		fmt.Println("Nothing learned (learning disabled, fallback category or too few keywords)")
	}
}

func runTrain(args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	lang := fs.String("lang", "", "language to train (required)")
	modelType := fs.String("model", "", "logistic_regression or random_forest (default from config)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseOutput(*output)
	if *lang == "" {
		fatalf("Usage: bunrui train --lang <code> [--model type]")
	}

	_, logger, components := bootstrap(*configPath, false)
	defer logger.Sync()
	defer components.Close()
	language := models.NormalizeLanguage(*lang)
	v, err := components.Engine.TrainModel(context.Background(), language, *modelType)
	if err != nil {
		fatalf("Training failed: %v", err)
	}
	if err := cli.WriteVersions(os.Stdout, map[string]*string{language: v}, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runRetrain(args []string) {
	fs := flag.NewFlagSet("retrain", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseOutput(*output)

	_, logger, components := bootstrap(*configPath, false)
	defer logger.Sync()
	defer components.Close()
	versions, err := components.Engine.RetrainAll(context.Background())
	if werr := cli.WriteVersions(os.Stdout, versions, format); werr != nil {
		fatalf("Output failed: %v", werr)
	}
	if err != nil {
		fatalf("Retraining failed: %v", err)
	}
}

func runSyncBlacklist(args []string) {
	fs := flag.NewFlagSet("sync-blacklist", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	lang := fs.String("lang", "", "only sync this language (default all)")
	_ = fs.Parse(args)

	_, logger, components := bootstrap(*configPath, false)
	defer logger.Sync()
	defer components.Close()
	var language *string
	if *lang != "" {
		l := models.NormalizeLanguage(*lang)
		language = &l
	}
	n, err := components.Engine.SyncBlacklist(context.Background(), language)
	if err != nil {
		fatalf("Blacklist sync failed: %v", err)
	}
	fmt.Printf("Synced %d blacklisted entit%s into training data\n", n, plural(n, "y", "ies"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func runOverlaps(args []string) {
	fs := flag.NewFlagSet("overlaps", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use direct storage)")
	userID := fs.String("user", "", "user id (required)")
	lang := fs.String("lang", models.DefaultLanguage, "language")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseOutput(*output)

	var (
		overlaps []models.KeywordOverlap
		err      error
	)
	language := models.NormalizeLanguage(*lang)
	if *serverURL != "" {
		var out struct {
			Overlaps []models.KeywordOverlap `json:"overlaps"`
		}
		path := "/api/v1/overlaps?user_id=" + url.QueryEscape(*userID) + "&language=" + url.QueryEscape(language)
		err = getJSON(*serverURL, path, &out)
		overlaps = out.Overlaps
	} else {
		_, logger, components := bootstrap(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		overlaps, err = components.Engine.DetectOverlaps(context.Background(), *userID, language)
	}
	if err != nil {
		fatalf("Overlap detection failed: %v", err)
	}
	if err := cli.WriteOverlaps(os.Stdout, overlaps, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runScoreEntity(args []string) {
	fs := flag.NewFlagSet("score-entity", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use direct storage)")
	entityType := fs.String("type", models.EntityPerson, "entity type: PERSON, ORGANIZATION, LOCATION, ADDRESS")
	lang := fs.String("lang", models.DefaultLanguage, "language")
	ner := fs.Float64("ner", 0, "NER confidence in [0,1]")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args))
	format := parseOutput(*output)

	req := &models.EntityRequest{
		Value:         strings.Join(fs.Args(), " "),
		EntityType:    *entityType,
		Language:      *lang,
		NERConfidence: *ner,
	}
	var (
		score *models.EntityScore
		err   error
	)
	if *serverURL != "" {
		score = &models.EntityScore{}
		err = postJSON(*serverURL, "/api/v1/entities/score", req, score)
	} else {
		_, logger, components := bootstrap(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		score, err = components.Engine.ScoreEntity(context.Background(), req)
	}
	if err != nil {
		fatalf("Scoring failed: %v", err)
	}
	if err := cli.WriteEntityScore(os.Stdout, score, entityquality.FeatureNames[:], format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runSeedLexicon(args []string) {
	fs := flag.NewFlagSet("seed-lexicon", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(reorderArgs(args))

	cfg, logger, components := bootstrap(*configPath, false)
	defer logger.Sync()
	defer components.Close()
	ctx := context.Background()

	paths := fs.Args()
	if len(paths) == 0 && cfg.Storage.LexiconDir != "" {
		paths = []string{cfg.Storage.LexiconDir}
	}
	if len(paths) == 0 {
		n, err := components.Lexicons.SeedBuiltin(ctx)
		if err != nil {
			fatalf("Seeding failed: %v", err)
		}
		fmt.Printf("Seeded %d built-in lexicon entries\n", n)
		return
	}
	files, err := lexiconFiles(paths)
	if err != nil {
		fatalf("Seeding failed: %v", err)
	}
	total := 0
	for _, f := range files {
		n, err := components.Lexicons.SeedPath(ctx, f)
		if err != nil {
			fatalf("Seeding %s failed: %v", f, err)
		}
		total += n
	}
	fmt.Printf("Seeded %d lexicon entries from %d file(s)\n", total, len(files))
}

// lexiconFiles expands directories to the YAML files they contain.
func lexiconFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(p, pattern))
			if err != nil {
				return nil, err
			}
			out = append(out, matches...)
		}
	}
	return out, nil
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", "", "server URL (empty = use direct storage)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseOutput(*output)

	var (
		status *models.Status
		err    error
	)
	if *serverURL != "" {
		status = &models.Status{}
		err = getJSON(*serverURL, "/api/v1/status", status)
	} else {
		_, logger, components := bootstrap(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		status, err = components.Engine.Status(context.Background())
	}
	if err != nil {
		fatalf("Status failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// reorderArgs moves any flags that appear after positional arguments to the front,
// since flag parsing stops at the first non-flag argument.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			return append(reordered, args[:i]...)
		}
	}
	return args
}

func printUsage() {
	fmt.Println(`bunrui - adaptive document classification and entity quality engine

Usage:
  bunrui server [flags]                  Start the HTTP server
  bunrui predict [flags] [text...]       Predict the category of a document
  bunrui learn [flags] [text...]         Learn from a user's classification
  bunrui train --lang <code> [flags]     Train an entity quality model
  bunrui retrain [flags]                 Retrain models for every language
  bunrui sync-blacklist [flags]          Copy blacklisted entities into training data
  bunrui overlaps --user <id> [flags]    Report keywords shared between categories
  bunrui score-entity [flags] <value>    Score the validity of an extracted entity
  bunrui seed-lexicon [flags] [paths...] Seed lexicon YAML files (default: built-in)
  bunrui status [flags]                  Show stored data and active models
  bunrui version                         Show version
  bunrui help                            Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/bunrui/config.yaml)
  --server string    Server URL for predict, learn, overlaps, score-entity and status.
                     Empty (default) uses direct storage.
  --output string    Output format: text or json (default: text)

Predict / Learn Flags:
  --user string        User id (required)
  --file string        Read the document from a pdf, docx, xlsx, odt, rtf or text file
  --keywords string    Comma separated keywords instead of extraction
  --lang string        Document language (default: en)
  --categories string  predict: restrict to these category ids
  --index              predict: add the document text to the corpus index
  --category string    learn: primary category id (required)
  --secondary string   learn: secondary category ids
  --predicted string   learn: category id the classifier suggested
  --confidence float   learn: confidence of the suggestion

Examples:
  bunrui server
  bunrui predict --user u1 --file invoice.pdf
  bunrui learn --user u1 --category 7f3c... --predicted 91aa... --confidence 0.82 --file invoice.pdf
  bunrui train --lang de --model random_forest
  bunrui score-entity --type ORGANIZATION --ner 0.7 "Muster GmbH"
  bunrui overlaps --user u1 --output json`)
}
