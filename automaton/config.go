package automaton

// Unified configuration for the streaming match automaton

import (
	"errors"
	"fmt"
)

// -------------------- Enums --------------------

// MatchPolicy quyết định automaton làm gì khi một pattern vừa hoàn tất.
type MatchPolicy int

const (
	// Shortest = 0 để zero-value là hành vi mặc định: báo Matched rồi reset về root.
	PolicyShortest MatchPolicy = iota
	// Continue báo Matched nhưng giữ lại các nhánh còn có thể kéo dài.
	PolicyContinue
)

func (p MatchPolicy) String() string {
	switch p {
	case PolicyShortest:
		return "Shortest"
	case PolicyContinue:
		return "Continue"
	default:
		return fmt.Sprintf("MatchPolicy(%d)", int(p))
	}
}

func (p MatchPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *MatchPolicy) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Shortest", "shortest", "":
		*p = PolicyShortest
	case "Continue", "continue":
		*p = PolicyContinue
	default:
		return fmt.Errorf("unknown match policy %q", string(b))
	}
	return nil
}

var ErrNegativeFragmentLimit = errors.New("max_fragment_runes must not be negative")

// -------------------- Config --------------------

type Config struct {
	// Chính sách khi hoàn tất một pattern
	Policy MatchPolicy `json:"match_policy"`

	// So khớp không phân biệt hoa/thường (literal lẫn regex)
	CaseInsensitive bool `json:"case_insensitive"`

	// Giới hạn độ dài một lần chạy fragment (0 = không giới hạn)
	MaxFragmentRunes int `json:"max_fragment_runes"`

	// Bật prefilter Aho-Corasick cho literal
	EnablePrefilter bool `json:"enable_prefilter"`
}

func DefaultConfig() Config {
	return Config{
		Policy:           PolicyShortest,
		CaseInsensitive:  false,
		MaxFragmentRunes: 0,
		EnablePrefilter:  true,
	}
}

func NewConfig() Config {
	return DefaultConfig()
}

// LexerConfig: preset cho tokenizer, chặn fragment chạy vô hạn trên input dài.
func LexerConfig() Config {
	return Config{
		Policy:           PolicyShortest,
		CaseInsensitive:  false,
		MaxFragmentRunes: 4096,
		EnablePrefilter:  true,
	}
}

// ExhaustiveConfig: báo mọi pattern hoàn tất dọc theo một nhánh (vd "bar" rồi "barz").
func ExhaustiveConfig() Config {
	return Config{
		Policy:           PolicyContinue,
		CaseInsensitive:  false,
		MaxFragmentRunes: 0,
		EnablePrefilter:  false,
	}
}

func (c Config) WithPolicy(p MatchPolicy) Config {
	c.Policy = p
	return c
}

func (c Config) WithCaseInsensitive(enable bool) Config {
	c.CaseInsensitive = enable
	return c
}

func (c Config) WithMaxFragmentRunes(n int) Config {
	c.MaxFragmentRunes = n
	return c
}

func (c Config) WithPrefilter(enable bool) Config {
	c.EnablePrefilter = enable
	return c
}

func (c Config) Validate() error {
	if c.MaxFragmentRunes < 0 {
		return ErrNegativeFragmentLimit
	}
	switch c.Policy {
	case PolicyShortest, PolicyContinue:
	default:
		return fmt.Errorf("invalid match policy %s", c.Policy)
	}
	return nil
}
