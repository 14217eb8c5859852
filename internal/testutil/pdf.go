// This file provides in-memory stand-ins for PDF documents and the OCR engine
// so pipeline tests do not depend on MuPDF or tesseract being installed.

package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/vrsandeep/qa-harvest/internal/extract"
)

const (
	fakeTextHeader   = "%FAKEPDF\n"
	fakeScanHeader   = "%FAKEPDF-SCAN\n"
	fakeLockedHeader = "%FAKEPDF-LOCKED"
)

// FakePDF builds a document whose pages carry native text.
func FakePDF(pages ...string) []byte {
	return []byte(fakeTextHeader + strings.Join(pages, "\f"))
}

// FakeScannedPDF builds a document with no native text; its page images
// carry the given text for PixelOCR to read back.
func FakeScannedPDF(pages ...string) []byte {
	return []byte(fakeScanHeader + strings.Join(pages, "\f"))
}

// FakeProtectedPDF builds a document that requires a password.
func FakeProtectedPDF() []byte {
	return []byte(fakeLockedHeader)
}

// CorruptPDF returns bytes that are not a readable document.
func CorruptPDF() []byte {
	return []byte("this is not a pdf at all")
}

// FakeDoc is an in-memory extract.Document.
type FakeDoc struct {
	Native  []string // what Text returns per page
	Images  []string // text encoded into each page image
	TextErr error    // returned by Text for every page when set

	mu     sync.Mutex
	closed bool
}

func (d *FakeDoc) NumPage() int { return len(d.Native) }

func (d *FakeDoc) Text(n int) (string, error) {
	if d.TextErr != nil {
		return "", d.TextErr
	}
	if n < 0 || n >= len(d.Native) {
		return "", errors.New("page missing")
	}
	return d.Native[n], nil
}

// ImageDPI encodes the page's text into the red channel, one byte per pixel.
func (d *FakeDoc) ImageDPI(n int, _ float64) (*image.RGBA, error) {
	if n < 0 || n >= len(d.Images) {
		return nil, errors.New("page missing")
	}
	txt := d.Images[n]
	img := image.NewRGBA(image.Rect(0, 0, len(txt)+1, 1))
	for i := 0; i < len(txt); i++ {
		img.Pix[i*4] = txt[i]
		img.Pix[i*4+3] = 0xff
	}
	return img, nil
}

func (d *FakeDoc) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (d *FakeDoc) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// FakeOpener understands the documents built by FakePDF and friends.
type FakeOpener struct{}

func (FakeOpener) Open(data []byte) (extract.Document, error) {
	switch {
	case bytes.HasPrefix(data, []byte(fakeLockedHeader)):
		return nil, fmt.Errorf("%w: a password is required to open it", extract.ErrProtected)
	case bytes.HasPrefix(data, []byte(fakeScanHeader)):
		pages := strings.Split(string(data[len(fakeScanHeader):]), "\f")
		return &FakeDoc{Native: make([]string, len(pages)), Images: pages}, nil
	case bytes.HasPrefix(data, []byte(fakeTextHeader)):
		pages := strings.Split(string(data[len(fakeTextHeader):]), "\f")
		return &FakeDoc{Native: pages, Images: pages}, nil
	default:
		return nil, fmt.Errorf("%w: no PDF header found", extract.ErrCorrupted)
	}
}

// OpenerFunc adapts a function to extract.Opener.
type OpenerFunc func(data []byte) (extract.Document, error)

func (f OpenerFunc) Open(data []byte) (extract.Document, error) { return f(data) }

// PixelOCR reads back the text FakeDoc.ImageDPI encoded into an image.
type PixelOCR struct {
	mu    sync.Mutex
	calls int
}

func (o *PixelOCR) Recognize(_ context.Context, img image.Image) (string, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()

	b := img.Bounds()
	var sb strings.Builder
	for x := b.Min.X; x < b.Max.X; x++ {
		r, _, _, a := img.At(x, b.Min.Y).RGBA()
		if a == 0 {
			break
		}
		sb.WriteByte(byte(r >> 8))
	}
	return sb.String(), nil
}

// Calls reports how many pages were recognized.
func (o *PixelOCR) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// FailingOCR always fails with Err.
type FailingOCR struct {
	Err error
}

func (o FailingOCR) Recognize(context.Context, image.Image) (string, error) {
	return "", o.Err
}

// FakeImage returns a blank opaque image of the given size.
func FakeImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}
