package dag

import (
	"fmt"

	ir "github.com/PhucNguyen204/streammatch/automaton"
	"github.com/PhucNguyen204/streammatch/automaton/matcher"
)

// Automaton nối graph đã biên dịch với danh sách pattern, prefilter tuỳ chọn
// và một traversal mặc định.
//
// Graph bất biến sau New nên có thể chia sẻ giữa nhiều goroutine qua
// NewTraversal. Step/Reset dùng traversal mặc định và không an toàn cho
// truy cập đồng thời.
type Automaton struct {
	dag      *CompiledDag
	patterns []ir.Pattern
	config   ir.Config

	prefilter *LiteralPrefilter
	cursor    *Traversal
}

// New biên dịch patterns thành automaton. Bất kỳ pattern lỗi nào khiến New
// trả về lỗi (*matcher.PatternCompileError) và automaton nil.
func New(patterns []ir.Pattern, cfg ir.Config) (*Automaton, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	mb := matcher.NewBuilderFromConfig(cfg)
	var pb *prefilterBuilder
	if cfg.EnablePrefilter {
		pb = newPrefilterBuilder(PrefilterConfigFrom(cfg))
		mb.WithLiteralExtraction(pb.add)
	}

	compiled, err := mb.Compile(patterns)
	if err != nil {
		return nil, err
	}

	a := &Automaton{
		dag:      NewDagBuilder().AddCompiled(compiled).Build(),
		patterns: append([]ir.Pattern(nil), patterns...),
		config:   cfg,
	}
	if pb != nil {
		a.prefilter = pb.build()
	}
	a.cursor = a.NewTraversal()
	return a, nil
}

// NewTraversal tạo con trỏ mới ở root, dùng chung graph read-only.
func (a *Automaton) NewTraversal() *Traversal {
	return &Traversal{a: a}
}

// Step đưa một ký tự vào traversal mặc định.
func (a *Automaton) Step(r rune) StepResult {
	return a.cursor.Step(r)
}

// Reset đưa traversal mặc định về root.
func (a *Automaton) Reset() {
	a.cursor.Reset()
}

func (a *Automaton) AtRoot() bool {
	return a.cursor.AtRoot()
}

// Accessors (metrics and configuration)

func (a *Automaton) Root() *Node {
	if a == nil || a.dag == nil {
		return nil
	}
	return a.dag.Root
}

func (a *Automaton) GetStatistics() DagStatistics {
	if a == nil || a.dag == nil {
		return DagStatistics{}
	}
	return a.dag.Statistics()
}

// Walk duyệt các node của graph theo pre-order.
func (a *Automaton) Walk(fn func(n *Node) bool) {
	if a == nil {
		return
	}
	a.dag.Walk(fn)
}

func (a *Automaton) PatternCount() int {
	if a == nil {
		return 0
	}
	return len(a.patterns)
}

func (a *Automaton) NodeCount() int {
	if a == nil || a.dag == nil {
		return 0
	}
	return a.dag.NodeCount()
}

func (a *Automaton) EdgeCount() int {
	if a == nil || a.dag == nil {
		return 0
	}
	return a.dag.EdgeCount()
}

// Patterns trả về bản sao danh sách pattern theo thứ tự đầu vào.
func (a *Automaton) Patterns() []ir.Pattern {
	if a == nil {
		return nil
	}
	return append([]ir.Pattern(nil), a.patterns...)
}

func (a *Automaton) Config() ir.Config {
	if a == nil {
		return ir.DefaultConfig()
	}
	return a.config
}

func (a *Automaton) PrefilterPatternCount() int {
	if a == nil || a.prefilter == nil {
		return 0
	}
	return a.prefilter.Stats().PatternCount
}

// ScanLiterals tìm mọi literal xuất hiện trong text (không qua traversal).
// complete == false nghĩa là kết quả có thể thiếu (xem PrefilterStats.Complete).
// Prefilter bị tắt thì trả về (nil, false).
func (a *Automaton) ScanLiterals(text string) (matches []PrefilterMatch, complete bool) {
	if a == nil || a.prefilter == nil {
		return nil, false
	}
	return a.prefilter.FindMatches(text), a.prefilter.Complete()
}

// MayContainLiteral: fast reject cho caller có sẵn cả buffer. false chỉ khi
// chắc chắn không literal pattern nào khớp trong text; không có prefilter
// hoặc prefilter không đầy đủ thì luôn trả về true.
func (a *Automaton) MayContainLiteral(text string) bool {
	if a == nil || a.prefilter == nil || !a.prefilter.Complete() {
		return true
	}
	return a.prefilter.HasMatch(text)
}
