package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/vrsandeep/qa-harvest/internal/extract"
	"github.com/vrsandeep/qa-harvest/internal/models"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
)

// Processor runs one document through extraction, matching and
// classification.
type Processor struct {
	extractor *extract.Extractor
}

func NewProcessor(extractor *extract.Extractor) *Processor {
	return &Processor{extractor: extractor}
}

// Process always returns a result. Errors, including panics in the
// extraction libraries, are folded into the status.
func (p *Processor) Process(ctx context.Context, fd models.FileDescriptor, snap *patterns.Snapshot) (res models.FileResult) {
	res = models.FileResult{FileName: fd.Name}
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("file", fd.Name).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Panic while processing file")
			res = models.FileResult{
				FileName: fd.Name,
				Status:   models.StatusFailed,
				Reason:   fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	text, err := p.read(ctx, fd, &res)

	var out Outcome
	out.Err = err
	if err == nil {
		out.Match = snap.Match(text, fd.Name)
		res.Model = out.Match.Model
		res.QANumber = out.Match.QANumber
		res.Author = out.Match.Author
	}
	res.Status, res.Reason = Classify(out)

	log.Debug().
		Str("file", fd.Name).
		Str("status", string(res.Status)).
		Str("method", res.Method).
		Str("model", res.Model).
		Str("qa_number", res.QANumber).
		Msg("File processed")
	return res
}

func (p *Processor) read(ctx context.Context, fd models.FileDescriptor, res *models.FileResult) (string, error) {
	pages, err := p.extractor.Extract(ctx, fd.Name, fd.Data)
	if err != nil {
		return "", err
	}
	defer pages.Close()

	res.Method = string(pages.Method())
	res.Pages = pages.Count()
	return extract.ReadAll(pages)
}
