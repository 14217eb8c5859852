// This file defines user-editable matching rules and how their matched
// values are normalized.

package patterns

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidPattern is returned when a rule expression does not compile.
var ErrInvalidPattern = errors.New("invalid pattern")

// Directive is one normalization step applied to a matched value.
type Directive string

const (
	Trim            Directive = "trim"
	Upper           Directive = "upper"
	Lower           Directive = "lower"
	StripSeparators Directive = "strip_separators"
	CollapseSpaces  Directive = "collapse_spaces"
)

var knownDirectives = map[Directive]bool{
	Trim:            true,
	Upper:           true,
	Lower:           true,
	StripSeparators: true,
	CollapseSpaces:  true,
}

// Field identifies which rule list a rule belongs to.
type Field string

const (
	FieldModel Field = "model"
	FieldQA    Field = "qa"
)

// Rule is a regular expression plus the normalization applied to its match.
// Its priority is its position in the owning list.
type Rule struct {
	Pattern   string      `json:"pattern"`
	Normalize []Directive `json:"normalize,omitempty"`
}

// UnmarshalJSON accepts either a bare pattern string, as sent by the pattern
// editor, or a full rule object.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Rule{Pattern: s, Normalize: []Directive{Trim}}
		return nil
	}
	type plain Rule
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Rule(p)
	return nil
}

// MarshalJSON writes a rule carrying only the default trim as a bare string,
// which is the shape the pattern editor reads and writes.
func (r Rule) MarshalJSON() ([]byte, error) {
	if len(r.Normalize) == 1 && r.Normalize[0] == Trim {
		return json.Marshal(r.Pattern)
	}
	type plain Rule
	return json.Marshal(plain(r))
}

// RuleError describes which rule in which list failed validation.
type RuleError struct {
	Field   Field
	Index   int
	Pattern string
	Err     error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s pattern %d %q: %v", e.Field, e.Index+1, e.Pattern, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// compiledRule is a Rule ready for matching.
type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// compile validates a rule. Expressions are matched case-insensitively.
func compile(field Field, index int, r Rule) (compiledRule, error) {
	if strings.TrimSpace(r.Pattern) == "" {
		return compiledRule{}, &RuleError{Field: field, Index: index, Pattern: r.Pattern, Err: fmt.Errorf("%w: empty expression", ErrInvalidPattern)}
	}
	for _, d := range r.Normalize {
		if !knownDirectives[d] {
			return compiledRule{}, &RuleError{Field: field, Index: index, Pattern: r.Pattern, Err: fmt.Errorf("%w: unknown normalization %q", ErrInvalidPattern, d)}
		}
	}
	re, err := regexp.Compile("(?i)" + r.Pattern)
	if err != nil {
		return compiledRule{}, &RuleError{Field: field, Index: index, Pattern: r.Pattern, Err: fmt.Errorf("%w: %v", ErrInvalidPattern, err)}
	}
	return compiledRule{Rule: r, re: re}, nil
}

// Validate checks that every rule in both lists compiles.
func Validate(model, qa []Rule) error {
	_, err := Compile(Set{Model: model, QA: qa})
	return err
}

// NormalizeValue applies the directives to v in order.
func NormalizeValue(v string, directives []Directive) string {
	for _, d := range directives {
		switch d {
		case Trim:
			v = strings.TrimSpace(v)
		case Upper:
			v = strings.ToUpper(v)
		case Lower:
			v = strings.ToLower(v)
		case StripSeparators:
			v = strings.Map(func(r rune) rune {
				switch r {
				case '-', '_', '.', '/', ' ', '\t':
					return -1
				}
				return r
			}, v)
		case CollapseSpaces:
			v = strings.Join(strings.Fields(v), " ")
		}
	}
	return v
}
