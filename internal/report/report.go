// This file fills the uploaded spreadsheet template with one row per
// processed document.

package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vrsandeep/qa-harvest/internal/models"
	"github.com/xuri/excelize/v2"
)

// ErrInvalidTemplate is returned when the template cannot be used.
var ErrInvalidTemplate = errors.New("invalid report template")

// ErrInvalidColumns is returned when the configured column titles clash.
var ErrInvalidColumns = errors.New("invalid report columns")

// headerSearchRows is how far down the sheet the header row is looked for.
const headerSearchRows = 20

// Columns are the header titles each result field is written under.
type Columns struct {
	FileName string
	Model    string
	QANumber string
	Author   string
	Status   string
	Reason   string
}

var DefaultColumns = Columns{
	FileName: "File Name",
	Model:    "Meta",
	QANumber: "QA Numbers",
	Author:   "Author",
	Status:   "Status",
	Reason:   "Review Reason",
}

func (c Columns) titles() []string {
	return []string{c.FileName, c.Model, c.QANumber, c.Author, c.Status, c.Reason}
}

// Validate rejects configurations that would write two fields under the same
// header. Blank titles take their defaults first.
func (c Columns) Validate() error {
	c = c.withDefaults()
	fields := []string{"file name", "model", "qa number", "author", "status", "reason"}
	seen := make(map[string]string, len(fields))
	for i, t := range c.titles() {
		key := normalizeTitle(t)
		if other, ok := seen[key]; ok {
			return fmt.Errorf("%w: column %q is configured for both %s and %s", ErrInvalidColumns, t, other, fields[i])
		}
		seen[key] = fields[i]
	}
	return nil
}

func (c Columns) withDefaults() Columns {
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&c.FileName, DefaultColumns.FileName)
	fill(&c.Model, DefaultColumns.Model)
	fill(&c.QANumber, DefaultColumns.QANumber)
	fill(&c.Author, DefaultColumns.Author)
	fill(&c.Status, DefaultColumns.Status)
	fill(&c.Reason, DefaultColumns.Reason)
	return c
}

// Options configure where and how results are written.
type Options struct {
	// Sheet to write into; empty means the first sheet.
	Sheet   string
	Columns Columns
	// HighlightColor is the fill used for rows that need attention.
	HighlightColor string
	Now            func() time.Time
}

// Artifact is a rendered report.
type Artifact struct {
	JobID     string
	FileName  string
	Data      []byte
	CreatedAt time.Time
}

// Builder collects results in processing order and renders them once.
type Builder struct {
	opts Options

	mu      sync.Mutex
	results []models.FileResult
}

func NewBuilder(opts Options) *Builder {
	opts.Columns = opts.Columns.withDefaults()
	if opts.HighlightColor == "" {
		opts.HighlightColor = "FFF2CC"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Builder{opts: opts}
}

func (b *Builder) Add(r models.FileResult) {
	b.mu.Lock()
	b.results = append(b.results, r)
	b.mu.Unlock()
}

// Results returns a copy of the results added so far.
func (b *Builder) Results() []models.FileResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.FileResult(nil), b.results...)
}

// ValidateTemplate checks that template is a workbook containing sheet, or
// any sheet when sheet is empty.
func ValidateTemplate(template []byte, sheet string) error {
	f, err := open(template)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pickSheet(f, sheet)
	return err
}

func open(template []byte) (*excelize.File, error) {
	if len(template) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidTemplate)
	}
	f, err := excelize.OpenReader(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return f, nil
}

func pickSheet(f *excelize.File, sheet string) (string, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return "", fmt.Errorf("%w: workbook has no sheets", ErrInvalidTemplate)
		}
		return sheets[0], nil
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return "", fmt.Errorf("%w: sheet %q not found", ErrInvalidTemplate, sheet)
	}
	return sheet, nil
}

// Render writes every collected result into a copy of template.
func (b *Builder) Render(template []byte, jobID string) (*Artifact, error) {
	results := b.Results()
	if err := b.opts.Columns.Validate(); err != nil {
		return nil, err
	}

	f, err := open(template)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet, err := pickSheet(f, b.opts.Sheet)
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidTemplate, sheet, err)
	}

	headerRow, cols := b.mapHeader(rows)
	for title, col := range cols {
		if col.added {
			cell, _ := excelize.CoordinatesToCellName(col.index, headerRow)
			if err := f.SetCellValue(sheet, cell, title); err != nil {
				return nil, err
			}
		}
	}

	highlight, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{b.opts.HighlightColor}},
	})
	if err != nil {
		return nil, err
	}

	first, last := 0, 0
	for _, col := range cols {
		if first == 0 || col.index < first {
			first = col.index
		}
		if col.index > last {
			last = col.index
		}
	}

	c := b.opts.Columns
	row := len(rows) + 1
	if row <= headerRow {
		row = headerRow + 1
	}
	for _, r := range results {
		values := map[string]string{
			c.FileName: r.FileName,
			c.Model:    r.Model,
			c.QANumber: r.QANumber,
			c.Author:   r.Author,
			c.Status:   r.Status.String(),
			c.Reason:   r.Reason,
		}
		for title, v := range values {
			cell, _ := excelize.CoordinatesToCellName(cols[title].index, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
		if r.NeedsAttention() {
			from, _ := excelize.CoordinatesToCellName(first, row)
			to, _ := excelize.CoordinatesToCellName(last, row)
			if err := f.SetCellStyle(sheet, from, to, highlight); err != nil {
				return nil, err
			}
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	now := b.opts.Now()
	art := &Artifact{
		JobID:     jobID,
		FileName:  fmt.Sprintf("QA_Report_%s.xlsx", now.Format("20060102_150405")),
		Data:      buf.Bytes(),
		CreatedAt: now,
	}
	log.Info().Str("job_id", jobID).Str("sheet", sheet).Int("rows", len(results)).Msg("Report rendered")
	return art, nil
}

type column struct {
	index int // 1-based
	added bool
}

// mapHeader finds the header row and the column of every configured title,
// assigning new columns after the last used one for titles the template
// lacks.
func (b *Builder) mapHeader(rows [][]string) (int, map[string]column) {
	titles := b.opts.Columns.titles()
	wanted := make(map[string]string, len(titles))
	for _, t := range titles {
		wanted[normalizeTitle(t)] = t
	}

	headerRow := 0
	for i := 0; i < len(rows) && i < headerSearchRows; i++ {
		for _, cell := range rows[i] {
			if _, ok := wanted[normalizeTitle(cell)]; ok {
				headerRow = i + 1
				break
			}
		}
		if headerRow != 0 {
			break
		}
	}
	if headerRow == 0 {
		// No known title; use the first non-empty row, or row 1 on a blank sheet.
		headerRow = 1
		for i, r := range rows {
			if strings.TrimSpace(strings.Join(r, "")) != "" {
				headerRow = i + 1
				break
			}
		}
	}

	cols := make(map[string]column, len(titles))
	lastUsed := 0
	if headerRow <= len(rows) {
		for i, cell := range rows[headerRow-1] {
			if strings.TrimSpace(cell) != "" {
				lastUsed = i + 1
			}
			if t, ok := wanted[normalizeTitle(cell)]; ok {
				if _, seen := cols[t]; !seen {
					cols[t] = column{index: i + 1}
				}
			}
		}
	}
	for _, t := range titles {
		if _, ok := cols[t]; ok {
			continue
		}
		lastUsed++
		cols[t] = column{index: lastUsed, added: true}
	}
	return headerRow, cols
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
