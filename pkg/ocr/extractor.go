// Package ocr extracts text from filed PDF documents. Scanned filings go
// through rasterisation and OCR; born-digital filings fall back to the
// embedded text layer.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Method records which extraction path produced the text.
type Method string

const (
	MethodOCR       Method = "ocr"
	MethodTextLayer Method = "textlayer"
)

// TextExtractor turns PDF bytes into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, pdfData []byte) (string, Method, error)
}

// Extractor extracts PDF text via tesseract OCR first, text layer second.
// OCR goes first on purpose: registry filings are usually scans, and the
// OCR output cannot contain text that is absent from the page image.
type Extractor struct {
	// PdftoppmBin and TesseractBin override the binaries, mainly for tests.
	PdftoppmBin  string
	TesseractBin string

	// DPI is the rasterisation resolution for OCR.
	DPI int

	logger *zap.Logger
}

// NewExtractor creates an extractor with default tool paths and 300 DPI.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{
		PdftoppmBin:  "pdftoppm",
		TesseractBin: "tesseract",
		DPI:          300,
		logger:       logger.Named("ocr"),
	}
}

// ExtractText extracts text from a PDF. An empty result with a nil error
// means the document genuinely has no extractable text; callers decide
// whether that is fatal.
func (e *Extractor) ExtractText(ctx context.Context, pdfData []byte) (string, Method, error) {
	text, ocrErr := e.extractWithOCR(ctx, pdfData)
	if ocrErr == nil && strings.TrimSpace(text) != "" {
		e.logger.Debug("OCR extraction succeeded", zap.Int("chars", len(text)))
		return text, MethodOCR, nil
	}
	if ocrErr != nil {
		e.logger.Warn("OCR extraction failed, trying text layer", zap.Error(ocrErr))
	}

	text, layerErr := extractTextLayer(pdfData)
	if layerErr != nil {
		if ocrErr != nil {
			return "", "", fmt.Errorf("ocr failed (%v); text layer failed: %w", ocrErr, layerErr)
		}
		// OCR ran cleanly and found nothing, and there is no text layer:
		// the document has no extractable text.
		return "", MethodOCR, nil
	}

	e.logger.Debug("text layer extraction", zap.Int("chars", len(text)))
	return text, MethodTextLayer, nil
}

// extractWithOCR rasterises each page and runs tesseract over the images.
func (e *Extractor) extractWithOCR(ctx context.Context, pdfData []byte) (string, error) {
	dir, err := os.MkdirTemp("", "filing-ocr-*")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "filing.pdf")
	if err := os.WriteFile(pdfPath, pdfData, 0o600); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, e.PdftoppmBin, "-png", "-r", fmt.Sprintf("%d", e.DPI), pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return "", fmt.Errorf("list pages: %w", err)
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("pdftoppm produced no pages")
	}
	sort.Strings(pages)

	var full strings.Builder
	for _, page := range pages {
		cmd := exec.CommandContext(ctx, e.TesseractBin, page, "stdout")
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf("tesseract %s: %w (%s)", filepath.Base(page), err, strings.TrimSpace(stderr.String()))
		}
		if text := stdout.String(); text != "" {
			full.WriteString(text)
			full.WriteString("\n")
		}
	}

	return full.String(), nil
}

// extractTextLayer reads the PDF's embedded text layer.
func extractTextLayer(pdfData []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read text layer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("read text layer: %w", err)
	}
	return buf.String(), nil
}

var _ TextExtractor = (*Extractor)(nil)
