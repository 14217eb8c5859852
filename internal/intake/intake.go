// This file turns uploaded files into the ordered list of PDFs a job works
// through, expanding any archives along the way.

package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/mholt/archives"
	"github.com/rs/zerolog/log"
	"github.com/vrsandeep/qa-harvest/internal/models"
)

// ErrNoDocuments is returned when the uploads contain no PDF at all.
var ErrNoDocuments = errors.New("no PDF documents found in upload")

// Result is the expanded upload.
type Result struct {
	Files    []models.FileDescriptor
	Warnings []string
}

func isPDFName(name string) bool {
	return strings.EqualFold(path.Ext(name), ".pdf")
}

func stem(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if strings.EqualFold(path.Ext(base), ".tar") {
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	return base
}

// Expand keeps PDFs as they are and replaces every archive with the PDFs it
// contains, in archive order. Anything else is skipped with a warning.
func Expand(ctx context.Context, sources []models.FileDescriptor) (*Result, error) {
	res := &Result{}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isPDFName(src.Name) {
			res.Files = append(res.Files, src)
			continue
		}
		if err := expandArchive(ctx, src, res); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Skipped %s: %v", src.Name, err))
			log.Warn().Str("file", src.Name).Err(err).Msg("Skipping upload")
		}
	}
	if len(res.Files) == 0 {
		return res, ErrNoDocuments
	}
	return res, nil
}

func expandArchive(ctx context.Context, src models.FileDescriptor, res *Result) error {
	format, _, err := archives.Identify(ctx, src.Name, bytes.NewReader(src.Data))
	if err != nil {
		return fmt.Errorf("not a PDF or supported archive")
	}
	ex, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("%s files are not archives", format.Extension())
	}

	prefix := stem(src.Name)
	var found []models.FileDescriptor
	var skipped int
	err = ex.Extract(ctx, bytes.NewReader(src.Data), func(ctx context.Context, f archives.FileInfo) error {
		name := f.NameInArchive
		if f.IsDir() || strings.Contains(name, "__MACOSX/") {
			return nil
		}
		base := path.Base(name)
		if strings.HasPrefix(base, ".") {
			return nil
		}
		if !isPDFName(base) {
			skipped++
			return nil
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		found = append(found, models.FileDescriptor{Name: prefix + "_" + base, Data: data})
		return nil
	})
	if err != nil {
		return err
	}

	if skipped > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Skipped %d non-PDF entries in %s", skipped, src.Name))
	}
	if len(found) == 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("No PDFs found in %s", src.Name))
	}
	log.Info().Str("file", src.Name).Int("pdfs", len(found)).Int("skipped", skipped).Msg("Expanded archive")
	res.Files = append(res.Files, found...)
	return nil
}
