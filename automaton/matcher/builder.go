// matcher/builder.go
package matcher

import (
	"errors"
	"sync"

	ir "github.com/PhucNguyen204/streammatch/automaton"
)

var ErrEmptyLiteral = errors.New("empty literal never matches a character")

// CompiledPattern là pattern đã biên dịch thành chuỗi nhãn cạnh.
// Literal: mỗi ký tự một ExactMatcher. Regex: đúng một FragmentMatcher.
type CompiledPattern struct {
	Index    int
	Pattern  ir.Pattern
	Exact    []ExactMatcher
	Fragment *FragmentMatcher
}

// Matchers trả về các nhãn cạnh theo thứ tự đi từ root.
func (c CompiledPattern) Matchers() []CharMatcher {
	if c.Fragment != nil {
		return []CharMatcher{c.Fragment}
	}
	out := make([]CharMatcher, 0, len(c.Exact))
	for _, m := range c.Exact {
		out = append(out, m)
	}
	return out
}

// Builder biên dịch danh sách pattern, chạy hooks theo pha.
type Builder struct {
	caseInsensitive  bool
	maxFragmentRunes int

	// Hooks theo pha biên dịch
	compilationHooks map[CompilationPhase][]CompilationHookFn

	mu sync.RWMutex
}

func NewBuilder() *Builder {
	return &Builder{
		compilationHooks: make(map[CompilationPhase][]CompilationHookFn),
	}
}

// NewBuilderFromConfig áp dụng các tuỳ chọn matcher trong cfg.
func NewBuilderFromConfig(cfg ir.Config) *Builder {
	return NewBuilder().
		WithCaseFolding(cfg.CaseInsensitive).
		WithMaxFragmentRunes(cfg.MaxFragmentRunes)
}

func (b *Builder) WithCaseFolding(enable bool) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caseInsensitive = enable
	return b
}

func (b *Builder) WithMaxFragmentRunes(n int) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxFragmentRunes = n
	return b
}

// RegisterCompilationHook đăng ký 1 hook chạy ở pha compile.
func (b *Builder) RegisterCompilationHook(phase CompilationPhase, hook CompilationHookFn) *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compilationHooks[phase] = append(b.compilationHooks[phase], hook)
	return b
}

// WithLiteralExtraction: convenience hook trích (literal, index) cho prefilter.
func (b *Builder) WithLiteralExtraction(extractor func(literal string, index int) error) *Builder {
	h := CompilationHookFn(func(ctx *CompilationContext) error {
		if !ctx.IsLiteral {
			return nil
		}
		return extractor(ctx.Literal, ctx.Index)
	})
	return b.RegisterCompilationHook(PatternDiscovery, h)
}

// Compile: biên dịch toàn bộ patterns. Lỗi ở bất kỳ pattern nào huỷ cả lần
// biên dịch; không trả về kết quả dở dang.
func (b *Builder) Compile(patterns []ir.Pattern) ([]CompiledPattern, error) {
	fold := b.folding()

	if hs := b.hooks(PreCompilation); len(hs) > 0 {
		ctx := NewSummaryContext(len(patterns), fold)
		for _, h := range hs {
			if err := h(ctx); err != nil {
				return nil, err
			}
		}
	}

	out := make([]CompiledPattern, 0, len(patterns))
	for i := range patterns {
		cp, err := b.compileOne(&patterns[i], i)
		if err != nil {
			return nil, err
		}
		if hs := b.hooks(PatternDiscovery); len(hs) > 0 {
			ctx := newPatternContext(&patterns[i], i, fold)
			if fold {
				ctx.Literal = FoldString(ctx.Literal)
			}
			for _, h := range hs {
				if err := h(ctx); err != nil {
					return nil, err
				}
			}
		}
		out = append(out, cp)
	}

	if hs := b.hooks(PostCompilation); len(hs) > 0 {
		ctx := NewSummaryContext(len(out), fold)
		for _, h := range hs {
			if err := h(ctx); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// ---------- helpers ----------

func (b *Builder) compileOne(p *ir.Pattern, index int) (CompiledPattern, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	switch p.Kind {
	case ir.KindLiteral:
		if p.Text == "" {
			return CompiledPattern{}, &PatternCompileError{Index: index, Kind: p.Kind.String(), Pattern: p.Text, Err: ErrEmptyLiteral}
		}
		exact := make([]ExactMatcher, 0, len(p.Text))
		for _, r := range p.Text {
			exact = append(exact, NewExactMatcher(r, b.caseInsensitive))
		}
		return CompiledPattern{Index: index, Pattern: *p, Exact: exact}, nil

	case ir.KindRegex:
		fm, err := NewFragmentMatcher(p.Text, b.caseInsensitive, b.maxFragmentRunes)
		if err != nil {
			var pce *PatternCompileError
			if errors.As(err, &pce) {
				pce.Index = index
			}
			return CompiledPattern{}, err
		}
		return CompiledPattern{Index: index, Pattern: *p, Fragment: fm}, nil

	default:
		return CompiledPattern{}, &PatternCompileError{
			Index:   index,
			Kind:    p.Kind.String(),
			Pattern: p.Text,
			Err:     &UnsupportedKindError{Kind: p.Kind.String()},
		}
	}
}

func (b *Builder) folding() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.caseInsensitive
}

func (b *Builder) hooks(phase CompilationPhase) []CompilationHookFn {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h := b.compilationHooks[phase]
	out := make([]CompilationHookFn, len(h))
	copy(out, h)
	return out
}

// ---------- introspection (phục vụ test/diagnostics) ----------

func (b *Builder) HookCount(phase CompilationPhase) int {
	return len(b.hooks(phase))
}

func (b *Builder) HasHooks(phase CompilationPhase) bool {
	return b.HookCount(phase) > 0
}

func (b *Builder) TotalHookCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := 0
	for _, hs := range b.compilationHooks {
		total += len(hs)
	}
	return total
}
