package patterns_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
)

func TestMatch_FirstRuleWins(t *testing.T) {
	text := "Service bulletin for TASKalfa 3551ci, reference QA-1042 and SB-77."

	broad := patterns.Rule{Pattern: `\b[A-Z]{2}-\d+\b`}
	narrow := patterns.Rule{Pattern: `\bSB-\d+\b`}

	snap, err := patterns.Compile(patterns.Set{QA: []patterns.Rule{broad, narrow}})
	require.NoError(t, err)
	assert.Equal(t, "QA-1042", snap.Match(text, "").QANumber)

	// Swapping two rules that both match changes the winner.
	snap, err = patterns.Compile(patterns.Set{QA: []patterns.Rule{narrow, broad}})
	require.NoError(t, err)
	assert.Equal(t, "SB-77", snap.Match(text, "").QANumber)
}

func TestMatch_DefaultSet(t *testing.T) {
	snap, err := patterns.Compile(patterns.DefaultSet)
	require.NoError(t, err)

	m := snap.Match("Affected units: ECOSYS   M2540dn\nSee qa-5521 for details", "")
	assert.Equal(t, "ECOSYS M2540dn", m.Model)
	assert.Equal(t, "QA-5521", m.QANumber)
	assert.True(t, m.ModelFound())
	assert.True(t, m.QAFound())
}

func TestMatch_NotFound(t *testing.T) {
	snap, err := patterns.Compile(patterns.DefaultSet)
	require.NoError(t, err)

	m := snap.Match("nothing useful on this page", "scan_001.pdf")
	assert.False(t, m.ModelFound())
	assert.False(t, m.QAFound())
}

func TestMatch_CaptureGroupAndNormalization(t *testing.T) {
	snap, err := patterns.Compile(patterns.Set{
		Model: []patterns.Rule{{
			Pattern:   `(?m)Model:\s*([a-z0-9 -]+?)\s*$`,
			Normalize: []patterns.Directive{patterns.Trim, patterns.Upper, patterns.StripSeparators},
		}},
	})
	require.NoError(t, err)

	m := snap.Match("Header\nModel:  fs-4200 dn \nFooter", "")
	assert.Equal(t, "FS4200DN", m.Model)
}

func TestMatch_FallsBackToFileName(t *testing.T) {
	snap, err := patterns.Compile(patterns.DefaultSet)
	require.NoError(t, err)

	m := snap.Match("scanned body without identifiers", "KM-2560_QA-88.pdf")
	assert.Equal(t, "KM-2560", m.Model)
	assert.Equal(t, "QA-88", m.QANumber)
}

func TestMatch_StandardizationAndAuthor(t *testing.T) {
	snap, err := patterns.CompileWithOptions(
		patterns.Set{Model: []patterns.Rule{{Pattern: `\bTASKalfa-\d+[a-z]*\b`}}},
		patterns.Options{
			Standardization: map[string]string{"TASKalfa-": "TASKalfa "},
			UnwantedAuthors: []string{"Knowledge Import"},
		},
	)
	require.NoError(t, err)

	m := snap.Match("Author: Jane Roe\nTASKalfa-5053ci", "")
	assert.Equal(t, "TASKalfa 5053ci", m.Model)
	assert.Equal(t, "Jane Roe", m.Author)

	m = snap.Match("Author: knowledge import\nTASKalfa-5053ci", "")
	assert.Empty(t, m.Author)
}

func TestCompile_InvalidPattern(t *testing.T) {
	_, err := patterns.Compile(patterns.Set{
		Model: patterns.DefaultSet.Model,
		QA:    []patterns.Rule{{Pattern: `\bQA-\d+\b`}, {Pattern: `QA-(\d+`}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, patterns.ErrInvalidPattern))

	var ruleErr *patterns.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, patterns.FieldQA, ruleErr.Field)
	assert.Equal(t, 1, ruleErr.Index)
}

func TestCompile_UnknownDirective(t *testing.T) {
	err := patterns.Validate([]patterns.Rule{{Pattern: `x`, Normalize: []patterns.Directive{"reverse"}}}, nil)
	assert.ErrorIs(t, err, patterns.ErrInvalidPattern)
}

func TestRule_UnmarshalJSON(t *testing.T) {
	var set patterns.Set
	payload := `{"model_patterns": ["\\bFS-\\d+\\b"], "qa_patterns": [{"pattern": "\\bQA-\\d+\\b", "normalize": ["upper"]}]}`
	require.NoError(t, json.Unmarshal([]byte(payload), &set))

	require.Len(t, set.Model, 1)
	assert.Equal(t, `\bFS-\d+\b`, set.Model[0].Pattern)
	assert.Equal(t, []patterns.Directive{patterns.Trim}, set.Model[0].Normalize)

	require.Len(t, set.QA, 1)
	assert.Equal(t, []patterns.Directive{patterns.Upper}, set.QA[0].Normalize)
}

func TestRule_MarshalJSON(t *testing.T) {
	set := patterns.Set{
		Model: []patterns.Rule{
			{Pattern: `\bFS-\d+\b`, Normalize: []patterns.Directive{patterns.Trim}},
			{Pattern: `\bKM-\d+\b`, Normalize: []patterns.Directive{patterns.Trim, patterns.Upper}},
		},
		QA: []patterns.Rule{{Pattern: `\bQA-\d+\b`}},
	}
	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"model_patterns": ["\\bFS-\\d+\\b", {"pattern": "\\bKM-\\d+\\b", "normalize": ["trim", "upper"]}],
		"qa_patterns": [{"pattern": "\\bQA-\\d+\\b"}]
	}`, string(data))

	var back patterns.Set
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, set, back)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "ECOSYS M2540DN", patterns.NormalizeValue("  ecosys   m2540dn ", []patterns.Directive{patterns.CollapseSpaces, patterns.Upper}))
	assert.Equal(t, "qa1042", patterns.NormalizeValue("QA-10.42", []patterns.Directive{patterns.StripSeparators, patterns.Lower}))
}
