package fileid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestForPath(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "letters", "invoice.pdf")
	b := filepath.Join(dir, "letters", ".", "..", "letters", "invoice.pdf")

	id := ForPath(a)
	if !strings.HasPrefix(id, pathPrefix) || len(id) != len(pathPrefix)+32 {
		t.Errorf("ForPath = %q", id)
	}
	if ForPath(b) != id {
		t.Error("equivalent paths should share an id")
	}
	if ForPath(filepath.Join(dir, "other.pdf")) == id {
		t.Error("different paths should differ")
	}
}

func TestForPath_relative(t *testing.T) {
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if ForPath("scan.pdf") != ForPath(filepath.Join(cwd, "scan.pdf")) {
		t.Error("relative path should resolve against the working directory")
	}
}

func TestForText(t *testing.T) {
	if ForText("  rent contract\n") != ForText("rent contract") {
		t.Error("surrounding whitespace should be ignored")
	}
	if ForText("rent contract") == ForText("rent invoice") {
		t.Error("different text should differ")
	}
	if !strings.HasPrefix(ForText("x"), textPrefix) {
		t.Errorf("ForText = %q", ForText("x"))
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name                 string
		explicit, path, text string
		want                 string
	}{
		{"explicit wins", "doc-1", "a.pdf", "text", "doc-1"},
		{"path before text", "", "/tmp/a.pdf", "text", ForPath("/tmp/a.pdf")},
		{"text", "", "", "hello", ForText("hello")},
		{"nothing", "", "", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.explicit, tt.path, tt.text); got != tt.want {
				t.Errorf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}
}
