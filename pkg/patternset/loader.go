package patternset

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	ir "github.com/PhucNguyen204/streammatch/automaton"
)

// PatternSet là một tài liệu YAML chứa danh sách pattern có thứ tự.
type PatternSet struct {
	Name        string
	Description string
	Patterns    []ir.Pattern
}

type rawPatternSet struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Patterns    []rawPattern `yaml:"patterns"`
}

// Một entry dùng đúng một trong literal/regex, hoặc cặp kind+text.
type rawPattern struct {
	ID      *uint32 `yaml:"id,omitempty"`
	Name    string  `yaml:"name,omitempty"`
	Literal *string `yaml:"literal,omitempty"`
	Regex   *string `yaml:"regex,omitempty"`
	Kind    string  `yaml:"kind,omitempty"`
	Text    *string `yaml:"text,omitempty"`
}

var ErrNoPatterns = errors.New("missing patterns block")

func LoadPatternSetYAML(b []byte) (PatternSet, error) {
	var rs rawPatternSet
	if err := yaml.Unmarshal(b, &rs); err != nil {
		return PatternSet{}, err
	}
	if len(rs.Patterns) == 0 {
		return PatternSet{}, ErrNoPatterns
	}

	out := make([]ir.Pattern, 0, len(rs.Patterns))
	for i, rp := range rs.Patterns {
		p, err := rp.toPattern()
		if err != nil {
			return PatternSet{}, fmt.Errorf("pattern %d: %w", i, err)
		}
		if rp.ID == nil {
			p.ID = ir.PatternId(i + 1)
		}
		out = append(out, p)
	}

	return PatternSet{
		Name:        strings.TrimSpace(rs.Name),
		Description: rs.Description,
		Patterns:    out,
	}, nil
}

func (rp rawPattern) toPattern() (ir.Pattern, error) {
	set := 0
	for _, v := range []*string{rp.Literal, rp.Regex, rp.Text} {
		if v != nil {
			set++
		}
	}
	if set != 1 {
		return ir.Pattern{}, errors.New("exactly one of literal, regex or text is required")
	}

	var p ir.Pattern
	switch {
	case rp.Literal != nil:
		if rp.Kind != "" {
			return ir.Pattern{}, errors.New("kind is only valid together with text")
		}
		p = ir.NewLiteral(*rp.Literal)
	case rp.Regex != nil:
		if rp.Kind != "" {
			return ir.Pattern{}, errors.New("kind is only valid together with text")
		}
		p = ir.NewRegexFragment(*rp.Regex)
	default:
		kind, err := ir.ParsePatternKind(rp.Kind)
		if err != nil {
			return ir.Pattern{}, err
		}
		p = ir.Pattern{Kind: kind, Text: *rp.Text}
	}
	if rp.ID != nil {
		p.ID = ir.PatternId(*rp.ID)
	}
	p.Name = strings.TrimSpace(rp.Name)
	return p, nil
}

// Merge nối các tập theo thứ tự và đánh lại ID tuần tự cho toàn bộ kết quả.
func Merge(sets ...PatternSet) []ir.Pattern {
	var out []ir.Pattern
	for _, s := range sets {
		for _, p := range s.Patterns {
			p.ID = 0
			out = append(out, p)
		}
	}
	return ir.NumberPatterns(out)
}

// MarshalYAML ghi tập pattern về dạng literal/regex.
func (s PatternSet) MarshalYAML() (any, error) {
	rs := rawPatternSet{Name: s.Name, Description: s.Description}
	for _, p := range s.Patterns {
		id := uint32(p.ID)
		text := p.Text
		rp := rawPattern{ID: &id, Name: p.Name}
		switch p.Kind {
		case ir.KindLiteral:
			rp.Literal = &text
		case ir.KindRegex:
			rp.Regex = &text
		default:
			return nil, fmt.Errorf("pattern %d: unsupported kind %s", p.ID, p.Kind)
		}
		rs.Patterns = append(rs.Patterns, rp)
	}
	return rs, nil
}
