package models

// FileDescriptor is one document queued for processing. It is read once by the
// job worker and never modified.
type FileDescriptor struct {
	Name string
	Data []byte
}

// FileResult is the outcome of processing a single document.
type FileResult struct {
	FileName string     `json:"filename"`
	Status   FileStatus `json:"status"`
	Model    string     `json:"model,omitempty"`
	QANumber string     `json:"qa_number,omitempty"`
	Author   string     `json:"author,omitempty"`
	Method   string     `json:"method,omitempty"` // "native" | "ocr"
	Pages    int        `json:"pages,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// NeedsAttention reports whether the file must be listed for manual review.
func (r FileResult) NeedsAttention() bool {
	return r.Status != StatusSuccess
}
