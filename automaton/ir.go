package automaton

import (
	"fmt"
	"strings"
)

type PatternId = uint32

// PatternKind phân loại pattern: literal (so khớp từng ký tự) hoặc regex fragment.
type PatternKind int

const (
	KindLiteral PatternKind = iota
	KindRegex
)

func (k PatternKind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindRegex:
		return "regex"
	default:
		return fmt.Sprintf("PatternKind(%d)", int(k))
	}
}

// ParsePatternKind chấp nhận "literal"/"string" và "regex"/"re"/"fragment".
func ParsePatternKind(s string) (PatternKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "literal", "string", "":
		return KindLiteral, nil
	case "regex", "re", "fragment":
		return KindRegex, nil
	default:
		return 0, fmt.Errorf("unknown pattern kind %q", s)
	}
}

func (k PatternKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PatternKind) UnmarshalText(b []byte) error {
	v, err := ParsePatternKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Pattern là đặc tả đầu vào cho automaton (chưa biên dịch).
type Pattern struct {
	ID   PatternId   `json:"id"`
	Name string      `json:"name,omitempty"`
	Kind PatternKind `json:"kind"`
	Text string      `json:"text"`
}

func NewLiteral(text string) Pattern {
	return Pattern{Kind: KindLiteral, Text: text}
}

func NewRegexFragment(text string) Pattern {
	return Pattern{Kind: KindRegex, Text: text}
}

func (p Pattern) WithName(name string) Pattern {
	p.Name = name
	return p
}

func (p Pattern) WithID(id PatternId) Pattern {
	p.ID = id
	return p
}

func (p Pattern) IsLiteral() bool { return p.Kind == KindLiteral }

// DisplayName trả về Name, hoặc Text nếu không đặt tên.
func (p Pattern) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Text
}

// Key dùng để dedupe pattern trùng (cùng kind + text).
func (p Pattern) Key() string {
	return p.Kind.String() + ":" + p.Text
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s(%q)", p.Kind, p.Text)
}

// NumberPatterns gán ID tuần tự (bắt đầu từ 1) cho các pattern chưa có ID.
func NumberPatterns(ps []Pattern) []Pattern {
	out := append([]Pattern(nil), ps...)
	for i := range out {
		if out[i].ID == 0 {
			out[i].ID = PatternId(i + 1)
		}
	}
	return out
}
