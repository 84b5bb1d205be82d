package dag

import (
	"fmt"

	"github.com/golang-collections/collections/stack"

	"github.com/PhucNguyen204/streammatch/automaton/matcher"
)

// ---------- ID ----------
type NodeId = uint32

// ---------- Edge ----------

// Edge nối một node với node con, gắn nhãn bằng một CharMatcher.
type Edge struct {
	Matcher matcher.CharMatcher
	Child   *Node
}

// ---------- Node ----------

// Node là một vị trí trong graph chuyển trạng thái. Sau khi Build, node là read-only.
type Node struct {
	ID    NodeId
	Depth int

	edges []Edge
	// key theo giá trị matcher -> chỉ số trong edges
	index map[matcher.Key]int

	terminal bool
	// chỉ số pattern (trong danh sách đầu vào) kết thúc tại node này
	patterns []int
}

func newNode(id NodeId, depth int) *Node {
	return &Node{ID: id, Depth: depth, index: make(map[matcher.Key]int)}
}

func (n *Node) IsTerminal() bool { return n.terminal }

func (n *Node) EdgeCount() int { return len(n.edges) }

func (n *Node) IsLeaf() bool { return len(n.edges) == 0 }

// Edges trả về bản sao danh sách cạnh theo thứ tự chèn.
func (n *Node) Edges() []Edge {
	return append([]Edge(nil), n.edges...)
}

// Patterns trả về chỉ số các pattern kết thúc tại node.
func (n *Node) Patterns() []int {
	return append([]int(nil), n.patterns...)
}

// Child tìm node con theo key của matcher.
func (n *Node) Child(k matcher.Key) (*Node, bool) {
	i, ok := n.index[k]
	if !ok {
		return nil, false
	}
	return n.edges[i].Child, true
}

func (n *Node) String() string {
	return fmt.Sprintf("Node{id=%d, depth=%d, edges=%d, terminal=%v, patterns=%v}",
		n.ID, n.Depth, len(n.edges), n.terminal, n.patterns)
}

// ---------- Statistics ----------

type DagStatistics struct {
	NodeCount     int `json:"node_count"`
	EdgeCount     int `json:"edge_count"`
	TerminalCount int `json:"terminal_count"`
	ExactEdges    int `json:"exact_edges"`
	FragmentEdges int `json:"fragment_edges"`
	MaxDepth      int `json:"max_depth"`
	// số cạnh được dùng chung nhờ dedupe theo giá trị
	SharedEdges int `json:"shared_edges"`
}

func (s DagStatistics) String() string {
	return fmt.Sprintf("DagStatistics{nodes=%d, edges=%d (exact=%d, fragment=%d), terminals=%d, max_depth=%d, shared=%d}",
		s.NodeCount, s.EdgeCount, s.ExactEdges, s.FragmentEdges, s.TerminalCount, s.MaxDepth, s.SharedEdges)
}

// ---------- CompiledDag ----------

// CompiledDag là graph bất biến sau khi dựng.
type CompiledDag struct {
	Root  *Node
	stats DagStatistics
}

func (d *CompiledDag) NodeCount() int { return d.stats.NodeCount }

func (d *CompiledDag) EdgeCount() int { return d.stats.EdgeCount }

func (d *CompiledDag) Statistics() DagStatistics { return d.stats }

// Walk duyệt theo chiều sâu, theo thứ tự chèn cạnh. fn trả về false để dừng.
func (d *CompiledDag) Walk(fn func(n *Node) bool) {
	if d == nil || d.Root == nil {
		return
	}
	st := stack.New()
	st.Push(d.Root)
	for st.Len() > 0 {
		n := st.Pop().(*Node)
		if !fn(n) {
			return
		}
		// đẩy ngược để con đầu tiên được thăm trước (pre-order)
		for i := len(n.edges) - 1; i >= 0; i-- {
			st.Push(n.edges[i].Child)
		}
	}
}
