package extract

import "errors"

// Extraction failures that need different remediation from the user.
var (
	// ErrProtected means the document cannot be opened without a password.
	ErrProtected = errors.New("document is password protected")
	// ErrCorrupted means the PDF structure could not be read.
	ErrCorrupted = errors.New("document structure is unreadable")
	// ErrOCR means the OCR engine is missing or failed on this document.
	ErrOCR = errors.New("ocr failed")
)
