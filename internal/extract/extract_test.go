package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/bunrui/internal/models"
	"github.com/xuri/excelize/v2"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Invoice 2024", "Invoice 2024"},
		{"blank lines", "\n\n  Invoice  \r\n\n Total \n", "Invoice\nTotal"},
		{"invalid utf8", "caf\x80e", "caf\ufffde"},
		{"control chars", "a\x00b\tc", "a b\tc"},
		{"empty", "   \n\t\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"scan.PDF", FormatPDF, true},
		{"letter.docx", FormatDOCX, true},
		{"ledger.xlsx", FormatXLSX, true},
		{"notes.odt", FormatODT, true},
		{"memo.rtf", FormatRTF, true},
		{"README.md", FormatText, true},
		{"photo.jpg", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatOf(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FormatOf(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtensionsSorted(t *testing.T) {
	exts := Extensions()
	if len(exts) != len(extensions) {
		t.Fatalf("got %d extensions, want %d", len(exts), len(extensions))
	}
	for i := 1; i < len(exts); i++ {
		if exts[i-1] >= exts[i] {
			t.Fatalf("not sorted: %v", exts)
		}
	}
}

func TestExtractBytes_text(t *testing.T) {
	e := NewExtractor(0)
	got, err := e.ExtractBytes([]byte("Bank statement\n\n  March  \n"), FormatText)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Bank statement\nMarch" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_xlsx(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Account")
	f.SetCellValue("Sheet1", "A2", "IBAN")
	f.SetCellValue("Sheet1", "B2", "DE89")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor(0).ExtractBytes(buf.Bytes(), FormatXLSX)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Account\nIBAN\tDE89" {
		t.Errorf("got %q", got)
	}
}

func docxBody(paragraphs string) string {
	return `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		paragraphs + `</w:body></w:document>`
}

func buildZip(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range parts {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_docx(t *testing.T) {
	body := docxBody(
		`<w:p w:rsidR="00A1"><w:r><w:t>Rental</w:t></w:r><w:r><w:t xml:space="preserve"> contract</w:t></w:r></w:p>` +
			`<w:p><w:r><w:t>Landlord</w:t><w:tab/><w:t>Tenant</w:t></w:r></w:p>`)
	content := buildZip(t, map[string]string{docxDefaultPart: body})

	got, err := NewExtractor(0).ExtractBytes(content, FormatDOCX)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Rental contract\nLandlord Tenant" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxContentTypes(t *testing.T) {
	types := `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override ContentType="` + docxMainType + `" PartName="/word/document2.xml"/>
</Types>`
	content := buildZip(t, map[string]string{
		docxContentTypes:     types,
		"word/document2.xml": docxBody(`<w:p><w:r><w:t>Tax assessment</w:t></w:r></w:p>`),
	})

	got, err := NewExtractor(0).ExtractBytes(content, FormatDOCX)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Tax assessment" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxErrors(t *testing.T) {
	e := NewExtractor(0)
	if _, err := e.ExtractBytes([]byte("not a zip"), FormatDOCX); err == nil {
		t.Error("expected error for non-zip content")
	}
	missing := buildZip(t, map[string]string{"other.xml": "<x/>"})
	if _, err := e.ExtractBytes(missing, FormatDOCX); err == nil {
		t.Error("expected error for missing document part")
	}
}

func TestExtractBytes_pdfInvalid(t *testing.T) {
	if _, err := NewExtractor(0).ExtractBytes([]byte("plain text, not a pdf"), FormatPDF); err == nil {
		t.Error("expected error for malformed PDF")
	}
}

func TestExtractBytes_limits(t *testing.T) {
	e := NewExtractor(4)
	_, err := e.ExtractBytes([]byte("too long"), FormatText)
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("oversized content: got %v, want ErrInvalidInput", err)
	}
	_, err = e.ExtractBytes([]byte("ok"), Format("pptx"))
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("unknown format: got %v, want ErrInvalidInput", err)
	}
}

func TestExtract_file(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "letter.txt")
	if err := os.WriteFile(path, []byte("Dear customer\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor(0).Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Dear customer" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_fileErrors(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(8)

	if _, err := e.Extract(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	image := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(image, []byte{0xff, 0xd8}, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Extract(image); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("unsupported type: got %v, want ErrInvalidInput", err)
	}

	big := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(big, bytes.Repeat([]byte("a"), 9), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Extract(big); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("oversized file: got %v, want ErrInvalidInput", err)
	}
}
