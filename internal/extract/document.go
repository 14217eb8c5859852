// This file opens PDFs with MuPDF after probing them with pdfcpu, and maps
// open failures onto ErrProtected or ErrCorrupted.

package extract

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
}

// Document is an opened PDF. *fitz.Document satisfies it.
type Document interface {
	NumPage() int
	Text(pageNumber int) (string, error)
	ImageDPI(pageNumber int, dpi float64) (*image.RGBA, error)
	Close() error
}

// Opener turns raw bytes into a Document. Failures wrap ErrProtected or
// ErrCorrupted.
type Opener interface {
	Open(data []byte) (Document, error)
}

// MuPDFOpener opens documents with go-fitz.
type MuPDFOpener struct{}

func (MuPDFOpener) Open(data []byte) (Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrCorrupted)
	}

	probeErr := probe(data)
	if errors.Is(probeErr, ErrProtected) {
		return nil, probeErr
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		if errors.Is(err, fitz.ErrNeedsPassword) {
			return nil, fmt.Errorf("%w: %v", ErrProtected, err)
		}
		if probeErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupted, probeErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if probeErr != nil {
		// MuPDF repairs many files pdfcpu rejects; keep going.
		log.Debug().Err(probeErr).Msg("pdf validation reported problems, MuPDF opened it anyway")
	}
	return doc, nil
}

// probe validates the document structure and detects encryption that needs a
// user password.
func probe(data []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	err := api.Validate(bytes.NewReader(data), conf)
	if err == nil {
		return nil
	}
	if errors.Is(err, pdfcpu.ErrWrongPassword) {
		return fmt.Errorf("%w: a password is required to open it", ErrProtected)
	}
	return err
}
