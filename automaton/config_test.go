package automaton

import (
	"encoding/json"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Policy != PolicyShortest {
		t.Fatalf("policy default should be Shortest")
	}
	if cfg.CaseInsensitive {
		t.Fatalf("case sensitive by default")
	}
	if cfg.MaxFragmentRunes != 0 {
		t.Fatalf("fragment limit default unlimited")
	}
	if !cfg.EnablePrefilter {
		t.Fatalf("prefilter default true")
	}
}

func TestLexerConfig(t *testing.T) {
	cfg := LexerConfig()

	if cfg.Policy != PolicyShortest {
		t.Fatalf("lexer policy")
	}
	if cfg.MaxFragmentRunes != 4096 {
		t.Fatalf("lexer fragment limit")
	}
}

func TestExhaustiveConfig(t *testing.T) {
	cfg := ExhaustiveConfig()

	if cfg.Policy != PolicyContinue {
		t.Fatalf("exhaustive policy should be Continue")
	}
	if cfg.EnablePrefilter {
		t.Fatalf("exhaustive prefilter off")
	}
}

func TestBuilderMethods(t *testing.T) {
	cfg := NewConfig().
		WithPolicy(PolicyContinue).
		WithCaseInsensitive(true).
		WithMaxFragmentRunes(16).
		WithPrefilter(false)

	if cfg.Policy != PolicyContinue {
		t.Fatalf("policy")
	}
	if !cfg.CaseInsensitive {
		t.Fatalf("case insensitive")
	}
	if cfg.MaxFragmentRunes != 16 {
		t.Fatalf("fragment limit")
	}
	if cfg.EnablePrefilter {
		t.Fatalf("prefilter false")
	}
}

func TestMatchPolicyZeroValueIsShortest(t *testing.T) {
	var p MatchPolicy
	if p != PolicyShortest {
		t.Fatalf("zero value policy should be Shortest")
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if err := DefaultConfig().WithMaxFragmentRunes(-1).Validate(); err != ErrNegativeFragmentLimit {
		t.Fatalf("expected ErrNegativeFragmentLimit, got %v", err)
	}
	if err := DefaultConfig().WithPolicy(MatchPolicy(9)).Validate(); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestConfigJSON(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(`{"match_policy":"Continue","case_insensitive":true}`), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Policy != PolicyContinue || !cfg.CaseInsensitive {
		t.Fatalf("decoded config = %+v", cfg)
	}
	b, _ := json.Marshal(DefaultConfig())
	if string(b) != `{"match_policy":"Shortest","case_insensitive":false,"max_fragment_runes":0,"enable_prefilter":true}` {
		t.Fatalf("encoded config = %s", b)
	}
}
