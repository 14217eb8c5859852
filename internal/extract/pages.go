package extract

import (
	"context"
	"fmt"
	"strings"
)

// Page is the text of one page, numbered from 1.
type Page struct {
	Number int
	Text   string
}

// Pages is a single-pass sequence of page texts. OCR work, when needed, is
// done lazily as Next advances.
//
//	pages, err := ex.Extract(ctx, name, data)
//	...
//	defer pages.Close()
//	for pages.Next() {
//		use(pages.Page())
//	}
//	if err := pages.Err(); err != nil { ... }
type Pages struct {
	ctx    context.Context
	doc    Document
	count  int
	method Method
	native []string
	ocr    Recognizer
	dpi    float64
	maxDim int

	next   int
	cur    Page
	err    error
	closed bool
}

// Method reports whether pages come from native text or OCR.
func (p *Pages) Method() Method { return p.method }

// Count is the number of pages in the document.
func (p *Pages) Count() int { return p.count }

// Next advances to the following page. It returns false at the end of the
// document or on the first error.
func (p *Pages) Next() bool {
	if p.closed || p.err != nil || p.next >= p.count {
		return false
	}
	if err := p.ctx.Err(); err != nil {
		p.err = err
		return false
	}
	i := p.next
	p.next++

	if p.method == MethodNative {
		p.cur = Page{Number: i + 1, Text: p.native[i]}
		return true
	}

	img, err := p.doc.ImageDPI(i, p.dpi)
	if err != nil {
		p.err = fmt.Errorf("%w: rasterize page %d: %v", ErrOCR, i+1, err)
		return false
	}
	txt, err := p.ocr.Recognize(p.ctx, fitWithin(img, p.maxDim))
	if err != nil {
		p.err = fmt.Errorf("%w: page %d: %w", ErrOCR, i+1, err)
		return false
	}
	p.cur = Page{Number: i + 1, Text: txt}
	return true
}

// Page returns the page produced by the last successful Next.
func (p *Pages) Page() Page { return p.cur }

// Err returns the error that stopped iteration, if any.
func (p *Pages) Err() error { return p.err }

// Close releases the underlying document. It is safe to call more than once.
func (p *Pages) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.doc.Close()
}

// ReadAll consumes the remaining pages and joins them with blank lines.
func ReadAll(p *Pages) (string, error) {
	var b strings.Builder
	for p.Next() {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p.Page().Text)
	}
	return b.String(), p.Err()
}
