// This file decides, per document, whether native text is good enough or
// the whole document has to go through OCR.

package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// Method records how a document's text was obtained.
type Method string

const (
	MethodNative Method = "native"
	MethodOCR    Method = "ocr"
)

// Config holds the extraction thresholds.
type Config struct {
	// MinTextChars is the minimum amount of native text (non-blank runes,
	// summed over all pages) below which the document is OCR'd instead.
	MinTextChars int
	// DPI used to rasterize pages for OCR, default 300.
	DPI float64
	// MaxDimension caps the longest side of a rasterized page; 0 = no cap.
	MaxDimension int
}

// Extractor produces page text for PDF documents.
type Extractor struct {
	cfg    Config
	opener Opener
	ocr    Recognizer
}

// New returns an Extractor. A nil opener uses MuPDF; a nil recognizer makes
// every OCR fallback fail with ErrOCR.
func New(cfg Config, opener Opener, ocr Recognizer) *Extractor {
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextChars < 0 {
		cfg.MinTextChars = 0
	}
	if opener == nil {
		opener = MuPDFOpener{}
	}
	return &Extractor{cfg: cfg, opener: opener, ocr: ocr}
}

// NeedsOCR reports whether a document with the given amount of native text
// falls back to OCR.
func NeedsOCR(nativeChars, minTextChars int) bool {
	return nativeChars < minTextChars
}

// CountChars sums the trimmed rune counts of the pages.
func CountChars(pages []string) int {
	n := 0
	for _, p := range pages {
		n += utf8.RuneCountInString(strings.TrimSpace(p))
	}
	return n
}

// Extract opens the document and returns its pages. The caller must Close
// the returned Pages.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (*Pages, error) {
	doc, err := e.opener.Open(data)
	if err != nil {
		if !errors.Is(err, ErrProtected) && !errors.Is(err, ErrCorrupted) {
			err = fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		return nil, err
	}

	count := doc.NumPage()
	if count <= 0 {
		doc.Close()
		return nil, fmt.Errorf("%w: document has no pages", ErrCorrupted)
	}

	native := make([]string, count)
	failed := 0
	var lastErr error
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			doc.Close()
			return nil, err
		}
		txt, err := doc.Text(i)
		if err != nil {
			failed++
			lastErr = err
			log.Warn().Str("file", name).Int("page", i+1).Err(err).Msg("Failed to read page text")
			continue
		}
		native[i] = txt
	}
	if failed == count {
		doc.Close()
		return nil, fmt.Errorf("%w: no page could be read: %v", ErrCorrupted, lastErr)
	}

	chars := CountChars(native)
	p := &Pages{
		ctx:    ctx,
		doc:    doc,
		count:  count,
		method: MethodNative,
		native: native,
		dpi:    e.cfg.DPI,
		maxDim: e.cfg.MaxDimension,
	}
	if NeedsOCR(chars, e.cfg.MinTextChars) {
		if e.ocr == nil {
			doc.Close()
			return nil, fmt.Errorf("%w: native text too short (%d chars) and no OCR engine is configured", ErrOCR, chars)
		}
		p.method = MethodOCR
		p.ocr = e.ocr
		p.native = nil
	}

	log.Debug().
		Str("file", name).
		Int("pages", count).
		Int("native_chars", chars).
		Str("method", string(p.method)).
		Msg("Document opened")
	return p, nil
}
