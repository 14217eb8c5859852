package extract

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/nfnt/resize"
)

// Recognizer turns a page image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// TesseractConfig configures the tesseract command line.
type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "eng"
	PSM         int    // page segmentation mode; 0 leaves tesseract's default
	TessdataDir string
}

// Tesseract recognizes text by running the tesseract binary.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
}

// NewTesseract returns a recognizer that runs commands through runner. A nil
// runner uses os/exec.
func NewTesseract(cfg TesseractConfig, runner Runner) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Tesseract{cfg: cfg, runner: runner}
}

// Check verifies that the tesseract binary can be executed.
func (t *Tesseract) Check(ctx context.Context) (string, error) {
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, "--version")
	if err != nil {
		return "", fmt.Errorf("tesseract unavailable: %w", err)
	}
	// Older releases print the version on stderr.
	version := strings.TrimSpace(string(out))
	if version == "" {
		version = strings.TrimSpace(string(errb))
	}
	if i := strings.IndexByte(version, '\n'); i >= 0 {
		version = version[:i]
	}
	return version, nil
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	f, err := os.CreateTemp("", "qa-ocr-*.png")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encode page image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	// tesseract <file> stdout -l <lang>
	args := []string{f.Name(), "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", t.cfg.PSM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, truncate(msg, 512))
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return cleanOCRText(string(out)), nil
}

// fitWithin shrinks img so neither side exceeds maxDim. Zero disables it.
func fitWithin(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return img
	}
	return resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3)
}

func cleanOCRText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	return strings.TrimSpace(s)
}
