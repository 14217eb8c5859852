package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/qa-harvest/internal/extract"
	"github.com/vrsandeep/qa-harvest/internal/models"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
	"github.com/vrsandeep/qa-harvest/internal/pipeline"
	"github.com/vrsandeep/qa-harvest/internal/testutil"
)

func newProcessor(t *testing.T, opener extract.Opener) (*pipeline.Processor, *patterns.Snapshot) {
	t.Helper()
	snap, err := patterns.Compile(patterns.DefaultSet)
	require.NoError(t, err)
	ex := extract.New(extract.Config{MinTextChars: 20}, opener, &testutil.PixelOCR{})
	return pipeline.NewProcessor(ex), snap
}

func TestProcess_Success(t *testing.T) {
	p, snap := newProcessor(t, testutil.FakeOpener{})

	res := p.Process(context.Background(), models.FileDescriptor{
		Name: "bulletin.pdf",
		Data: testutil.FakePDF("Author: Jane Roe\nApplies to TASKalfa 3551ci", "Reference QA-1042"),
	}, snap)

	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, "bulletin.pdf", res.FileName)
	assert.Equal(t, "TASKalfa 3551ci", res.Model)
	assert.Equal(t, "QA-1042", res.QANumber)
	assert.Equal(t, "Jane Roe", res.Author)
	assert.Equal(t, string(extract.MethodNative), res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Empty(t, res.Reason)
}

func TestProcess_ScannedDocument(t *testing.T) {
	p, snap := newProcessor(t, testutil.FakeOpener{})

	res := p.Process(context.Background(), models.FileDescriptor{
		Name: "scan.pdf",
		Data: testutil.FakeScannedPDF("KM-2560 service note", "see SB-301"),
	}, snap)

	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, string(extract.MethodOCR), res.Method)
	assert.Equal(t, "KM-2560", res.Model)
	assert.Equal(t, "SB-301", res.QANumber)
}

func TestProcess_NeedsReview(t *testing.T) {
	p, snap := newProcessor(t, testutil.FakeOpener{})

	res := p.Process(context.Background(), models.FileDescriptor{
		Name: "memo.pdf",
		Data: testutil.FakePDF("Internal memo about ECOSYS M2540dn toner supply"),
	}, snap)

	assert.Equal(t, models.StatusNeedsReview, res.Status)
	assert.Equal(t, "ECOSYS M2540dn", res.Model)
	assert.Equal(t, pipeline.ReasonQAMissing, res.Reason)
}

func TestProcess_ExtractionFailures(t *testing.T) {
	p, snap := newProcessor(t, testutil.FakeOpener{})

	res := p.Process(context.Background(), models.FileDescriptor{Name: "locked_QA-9.pdf", Data: testutil.FakeProtectedPDF()}, snap)
	assert.Equal(t, models.StatusProtected, res.Status)
	assert.Empty(t, res.QANumber, "matching is skipped when extraction fails")
	assert.NotEmpty(t, res.Reason)

	res = p.Process(context.Background(), models.FileDescriptor{Name: "broken.pdf", Data: testutil.CorruptPDF()}, snap)
	assert.Equal(t, models.StatusCorrupted, res.Status)
}

func TestProcess_RecoversFromPanic(t *testing.T) {
	p, snap := newProcessor(t, testutil.OpenerFunc(func([]byte) (extract.Document, error) {
		panic("mupdf exploded")
	}))

	res := p.Process(context.Background(), models.FileDescriptor{Name: "boom.pdf", Data: []byte("x")}, snap)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Equal(t, "boom.pdf", res.FileName)
	assert.Contains(t, res.Reason, "mupdf exploded")
}
