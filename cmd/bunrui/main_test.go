package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/bunrui/internal/models"
)

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after text are moved first",
			args:     []string{"invoice from acme", "-user", "u1"},
			expected: []string{"-user", "u1", "invoice from acme"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-user", "u1", "invoice"},
			expected: []string{"-user", "u1", "invoice"},
		},
		{
			name:     "text only returns unchanged",
			args:     []string{"Muster GmbH"},
			expected: []string{"Muster GmbH"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"Muster", "GmbH", "--type", "ORGANIZATION"},
			expected: []string{"--type", "ORGANIZATION", "Muster", "GmbH"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("reorderArgs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a, b ,,c ", []string{"a", "b", "c"}},
		{" , ", nil},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReadDocument(t *testing.T) {
	if got := readDocument("", []string{" rent", "contract "}); got != "rent contract" {
		t.Errorf("readDocument from args = %q", got)
	}
	path := filepath.Join(t.TempDir(), "letter.txt")
	if err := os.WriteFile(path, []byte("  Tax notice\n\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := readDocument(path, []string{"ignored"}); got != "Tax notice" {
		t.Errorf("readDocument from file = %q", got)
	}
}

func TestLexiconFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"en.yaml", "de.yml", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("language: en\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	single := filepath.Join(dir, "notes.txt")
	files, err := lexiconFiles([]string{dir, single})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "en.yaml"), filepath.Join(dir, "de.yml"), single}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("lexiconFiles = %v, want %v", files, want)
	}
	if _, err := lexiconFiles([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestPlural(t *testing.T) {
	if plural(1, "y", "ies") != "y" || plural(0, "y", "ies") != "ies" || plural(2, "y", "ies") != "ies" {
		t.Error("plural picked the wrong form")
	}
}

func TestHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/status":
			_ = json.NewEncoder(w).Encode(models.Status{Keywords: 7, LearningEnabled: true})
		case "/api/v1/predict":
			var req models.PredictRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.UserID == "" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid input: user_id is required"})
				return
			}
			_ = json.NewEncoder(w).Encode(models.Prediction{Confidence: 0.7})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("404 page not found"))
		}
	}))
	defer srv.Close()

	var status models.Status
	if err := getJSON(srv.URL+"/", "/api/v1/status", &status); err != nil {
		t.Fatal(err)
	}
	if status.Keywords != 7 || !status.LearningEnabled {
		t.Errorf("status = %+v", status)
	}

	var pred models.Prediction
	if err := postJSON(srv.URL, "/api/v1/predict", models.PredictRequest{UserID: "u1", Text: "x"}, &pred); err != nil {
		t.Fatal(err)
	}
	if pred.Confidence != 0.7 {
		t.Errorf("prediction = %+v", pred)
	}

	err := postJSON(srv.URL, "/api/v1/predict", models.PredictRequest{Text: "x"}, &pred)
	if err == nil || !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "user_id is required") {
		t.Errorf("expected API error, got %v", err)
	}
	err = getJSON(srv.URL, "/nope", &status)
	if err == nil || !strings.Contains(err.Error(), "404 page not found") {
		t.Errorf("expected plain error body, got %v", err)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bunrui.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
learning:
  fallback_key: "MISC"
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Learning.FallbackKey != "MISC" || cfg.Learning.WeightMax != 10 {
		t.Errorf("unexpected learning config: %+v", cfg.Learning)
	}
}

func TestInitializeComponents(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := "storage:\n  database_path: \"./bunrui.db\"\n  corpus_index_path: \"./corpus\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	c, err := initializeComponents(context.Background(), cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	status, err := c.Engine.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status.CorpusDocuments != 0 || status.DiskUsageBytes <= 0 {
		t.Errorf("status = %+v", status)
	}
	lex, err := c.Lexicons.Lexicon(context.Background(), "en")
	if err != nil {
		t.Fatal(err)
	}
	if !lex.IsStopWord("the") {
		t.Error("built-in lexicon should be seeded on first start")
	}
}
