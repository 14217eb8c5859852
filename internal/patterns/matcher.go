package patterns

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultSet is the rule set seeded on first start.
var DefaultSet = Set{
	Model: []Rule{
		{Pattern: `\bFS-\d+[A-Z]*\b`, Normalize: []Directive{Trim}},
		{Pattern: `\bKM-\d+[A-Z]*\b`, Normalize: []Directive{Trim}},
		{Pattern: `\bECOSYS\s+[A-Z]+\d+[a-z]*\b`, Normalize: []Directive{Trim, CollapseSpaces}},
		{Pattern: `\bTASKalfa\s+\d+[a-z]*\b`, Normalize: []Directive{Trim, CollapseSpaces}},
	},
	QA: []Rule{
		{Pattern: `\bQA-\d+\b`, Normalize: []Directive{Trim, Upper}},
		{Pattern: `\bSB-\d+\b`, Normalize: []Directive{Trim, Upper}},
	},
}

var reAuthor = regexp.MustCompile(`(?im)^Author:[ \t]*(.*)$`)

// Set holds the two ordered rule lists.
type Set struct {
	Model []Rule `json:"model_patterns"`
	QA    []Rule `json:"qa_patterns"`
}

// Options tune matching beyond the rules themselves.
type Options struct {
	// Standardization maps raw model fragments to their canonical form,
	// e.g. "TASKalfa-" -> "TASKalfa ".
	Standardization map[string]string
	// UnwantedAuthors are author values that are never reported.
	UnwantedAuthors []string
}

// Snapshot is an immutable compiled copy of a rule set. Jobs take one at start
// so later edits only affect later jobs.
type Snapshot struct {
	model    []compiledRule
	qa       []compiledRule
	replacer *strings.Replacer
	unwanted map[string]bool
}

// Compile validates and compiles every rule in s. The first failing rule is
// reported as a *RuleError wrapping ErrInvalidPattern.
func Compile(s Set) (*Snapshot, error) {
	return CompileWithOptions(s, Options{})
}

// CompileWithOptions is Compile with standardization and author filtering.
func CompileWithOptions(s Set, opts Options) (*Snapshot, error) {
	snap := &Snapshot{unwanted: make(map[string]bool)}
	for i, r := range s.Model {
		c, err := compile(FieldModel, i, r)
		if err != nil {
			return nil, err
		}
		snap.model = append(snap.model, c)
	}
	for i, r := range s.QA {
		c, err := compile(FieldQA, i, r)
		if err != nil {
			return nil, err
		}
		snap.qa = append(snap.qa, c)
	}

	if len(opts.Standardization) > 0 {
		// longest fragment first so overlapping keys resolve deterministically
		keys := make([]string, 0, len(opts.Standardization))
		for k := range opts.Standardization {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) > len(keys[j])
			}
			return keys[i] < keys[j]
		})
		pairs := make([]string, 0, len(keys)*2)
		for _, k := range keys {
			pairs = append(pairs, k, opts.Standardization[k])
		}
		snap.replacer = strings.NewReplacer(pairs...)
	}
	for _, a := range opts.UnwantedAuthors {
		snap.unwanted[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return snap, nil
}

// Rules returns the uncompiled rule set the snapshot was built from.
func (s *Snapshot) Rules() Set {
	var out Set
	for _, r := range s.model {
		out.Model = append(out.Model, r.Rule)
	}
	for _, r := range s.qa {
		out.QA = append(out.QA, r.Rule)
	}
	return out
}

// Match holds the harvested field values. Empty means not found.
type Match struct {
	Model    string
	QANumber string
	Author   string
}

func (m Match) ModelFound() bool { return m.Model != "" }
func (m Match) QAFound() bool    { return m.QANumber != "" }

// Match searches the document text, followed by the filename with underscores
// read as spaces, and returns the value of the first matching rule per list.
func (s *Snapshot) Match(text, fileName string) Match {
	content := text + "\n" + strings.ReplaceAll(fileName, "_", " ")

	var m Match
	m.Model = firstMatch(s.model, content)
	if m.Model != "" && s.replacer != nil {
		m.Model = s.replacer.Replace(m.Model)
	}
	m.QANumber = firstMatch(s.qa, content)
	m.Author = s.author(text)
	return m
}

func firstMatch(rules []compiledRule, content string) string {
	for _, r := range rules {
		sub := r.re.FindStringSubmatch(content)
		if sub == nil {
			continue
		}
		v := sub[0]
		if len(sub) > 1 && sub[1] != "" {
			v = sub[1]
		}
		if v = NormalizeValue(v, r.Normalize); v != "" {
			return v
		}
	}
	return ""
}

func (s *Snapshot) author(text string) string {
	sub := reAuthor.FindStringSubmatch(text)
	if sub == nil {
		return ""
	}
	a := strings.TrimSpace(sub[1])
	if a == "" || s.unwanted[strings.ToLower(a)] {
		return ""
	}
	return a
}
