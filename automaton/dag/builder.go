package dag

import (
	"github.com/PhucNguyen204/streammatch/automaton/matcher"
)

// PatternCompiler mở rộng graph với các node cần thiết để nhận diện một pattern.
// Extend tái sử dụng cạnh có key trùng nên gọi lại với prefix chung không làm graph phình ra.
type PatternCompiler interface {
	Extend(b *DagBuilder, patternIndex int)
}

// LiteralCompiler: mỗi ký tự một cạnh ExactMatcher, đi xuống một tầng mỗi ký tự.
type LiteralCompiler struct {
	Letters []matcher.ExactMatcher
}

func (c LiteralCompiler) Extend(b *DagBuilder, patternIndex int) {
	cur := b.root
	for _, m := range c.Letters {
		cur = b.addEdge(cur, m)
	}
	b.markTerminal(cur, patternIndex)
}

// FragmentCompiler: đúng một cạnh FragmentMatcher từ root. Fragment không
// ghép với hậu tố literal.
type FragmentCompiler struct {
	Fragment *matcher.FragmentMatcher
}

func (c FragmentCompiler) Extend(b *DagBuilder, patternIndex int) {
	child := b.addEdge(b.root, c.Fragment)
	b.markTerminal(child, patternIndex)
}

// CompilerFor chọn compiler theo loại pattern đã biên dịch.
func CompilerFor(cp matcher.CompiledPattern) PatternCompiler {
	if cp.Fragment != nil {
		return FragmentCompiler{Fragment: cp.Fragment}
	}
	return LiteralCompiler{Letters: cp.Exact}
}

// DagBuilder dựng graph từ các PatternCompiler. Mỗi builder tạo graph riêng;
// node không bao giờ được chia sẻ giữa hai automaton.
type DagBuilder struct {
	root   *Node
	nextID NodeId
	stats  DagStatistics
	built  bool
}

func NewDagBuilder() *DagBuilder {
	b := &DagBuilder{}
	b.root = b.allocNode(0)
	return b
}

// Add ghi pattern vào graph. Gọi sau Build là lỗi lập trình.
func (b *DagBuilder) Add(c PatternCompiler, patternIndex int) *DagBuilder {
	if b.built {
		panic("dag: Add after Build")
	}
	c.Extend(b, patternIndex)
	return b
}

// AddCompiled là tiện ích cho danh sách pattern đã biên dịch.
func (b *DagBuilder) AddCompiled(cps []matcher.CompiledPattern) *DagBuilder {
	for _, cp := range cps {
		b.Add(CompilerFor(cp), cp.Index)
	}
	return b
}

func (b *DagBuilder) Build() *CompiledDag {
	b.built = true
	return &CompiledDag{Root: b.root, stats: b.stats}
}

// ---------- helpers ----------

func (b *DagBuilder) allocNode(depth int) *Node {
	n := newNode(b.nextID, depth)
	b.nextID++
	b.stats.NodeCount++
	if depth > b.stats.MaxDepth {
		b.stats.MaxDepth = depth
	}
	return n
}

// addEdge trả về node con của from theo key của m, tạo mới nếu chưa có.
func (b *DagBuilder) addEdge(from *Node, m matcher.CharMatcher) *Node {
	k := m.Key()
	if i, ok := from.index[k]; ok {
		b.stats.SharedEdges++
		return from.edges[i].Child
	}
	child := b.allocNode(from.Depth + 1)
	from.index[k] = len(from.edges)
	from.edges = append(from.edges, Edge{Matcher: m, Child: child})
	b.stats.EdgeCount++
	switch k.Kind {
	case matcher.EdgeExact:
		b.stats.ExactEdges++
	case matcher.EdgeFragment:
		b.stats.FragmentEdges++
	}
	return child
}

func (b *DagBuilder) markTerminal(n *Node, patternIndex int) {
	if !n.terminal {
		b.stats.TerminalCount++
	}
	n.terminal = true
	n.patterns = append(n.patterns, patternIndex)
}
