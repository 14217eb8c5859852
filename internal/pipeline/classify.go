// This file maps the outcome of extracting and matching one document onto
// its terminal status.

package pipeline

import (
	"errors"

	"github.com/vrsandeep/qa-harvest/internal/extract"
	"github.com/vrsandeep/qa-harvest/internal/models"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
)

// Review reasons for documents that were read but not fully matched.
const (
	ReasonModelMissing = "model not found"
	ReasonQAMissing    = "QA number not found"
	ReasonBothMissing  = "model and QA number not found"
)

// Outcome is everything the classifier looks at for one document.
type Outcome struct {
	// Err is the extraction error, nil when the text was read.
	Err   error
	Match patterns.Match
}

// Classify returns the status for o and, unless it is Success, the reason
// shown to the reviewer.
func Classify(o Outcome) (models.FileStatus, string) {
	switch {
	case o.Err == nil:
	case errors.Is(o.Err, extract.ErrProtected):
		return models.StatusProtected, o.Err.Error()
	case errors.Is(o.Err, extract.ErrCorrupted):
		return models.StatusCorrupted, o.Err.Error()
	default:
		return models.StatusFailed, o.Err.Error()
	}

	model, qa := o.Match.ModelFound(), o.Match.QAFound()
	switch {
	case model && qa:
		return models.StatusSuccess, ""
	case qa:
		return models.StatusNeedsReview, ReasonModelMissing
	case model:
		return models.StatusNeedsReview, ReasonQAMissing
	default:
		return models.StatusNeedsReview, ReasonBothMissing
	}
}
