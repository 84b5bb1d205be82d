package dag

import (
	"fmt"

	ir "github.com/PhucNguyen204/streammatch/automaton"
	"github.com/PhucNguyen204/streammatch/automaton/matcher"
)

// StepOutcome là kết quả tổng hợp của một bước.
type StepOutcome int

const (
	Advancing StepOutcome = iota
	Matched
	NoMatch
)

func (o StepOutcome) String() string {
	switch o {
	case Advancing:
		return "Advancing"
	case Matched:
		return "Matched"
	case NoMatch:
		return "NoMatch"
	default:
		return fmt.Sprintf("StepOutcome(%d)", int(o))
	}
}

func (o StepOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Match mô tả một pattern vừa hoàn tất.
type Match struct {
	// Vị trí pattern trong danh sách truyền vào New
	Index     int            `json:"index"`
	PatternID ir.PatternId   `json:"pattern_id"`
	Name      string         `json:"name"`
	Kind      ir.PatternKind `json:"kind"`
	// Đoạn ký tự đã khớp
	Text string `json:"text"`
}

type StepResult struct {
	Outcome StepOutcome `json:"outcome"`
	Matches []Match     `json:"matches,omitempty"`
}

func (r StepResult) IsMatched() bool { return r.Outcome == Matched }

func (r StepResult) String() string {
	if len(r.Matches) == 0 {
		return r.Outcome.String()
	}
	return fmt.Sprintf("%s%v", r.Outcome, r.Matches)
}

// position là một vị trí sống: đứng tại node (edge < 0) hoặc đang ở giữa
// một cạnh fragment cùng Run riêng của nó.
type position struct {
	node   *Node
	edge   int
	run    matcher.Run
	length int // số ký tự của lần thử hiện tại đã tiêu thụ
}

type positionKey struct {
	node *Node
	edge int
}

// Traversal là con trỏ của một luồng input trên graph bất biến.
// Nhiều Traversal có thể dùng chung một Automaton trên các goroutine khác nhau;
// bản thân một Traversal không an toàn cho truy cập đồng thời.
type Traversal struct {
	a *Automaton
	// tập vị trí sống; rỗng nghĩa là đang ở root
	live []position
	// các ký tự của lần thử hiện tại (kể từ lần reset gần nhất)
	attempt []rune
	steps   int
}

// AtRoot: traversal đang ở root, không có nhánh nào dang dở.
func (t *Traversal) AtRoot() bool { return len(t.live) == 0 }

// LiveCount số vị trí đang được theo dõi song song.
func (t *Traversal) LiveCount() int { return len(t.live) }

// Steps tổng số ký tự đã đưa vào.
func (t *Traversal) Steps() int { return t.steps }

// Pending là các ký tự của lần thử hiện tại chưa được kết luận.
func (t *Traversal) Pending() string { return string(t.attempt) }

func (t *Traversal) Reset() {
	t.live = nil
	t.attempt = nil
}

// Step đưa một ký tự vào traversal và trả về kết quả tổng hợp:
//   - có nhánh tới node terminal → Matched (ưu tiên hoàn tất)
//   - còn nhánh sống → Advancing
//   - mọi nhánh đều Failed → NoMatch, reset về root
func (t *Traversal) Step(c rune) StepResult {
	t.steps++
	t.attempt = append(t.attempt, c)

	live := t.live
	if len(live) == 0 {
		live = []position{{node: t.a.dag.Root, edge: -1}}
	}

	st := newStepState(t)
	for _, p := range live {
		st.advance(p, c)
	}

	if len(st.matches) == 0 {
		if len(st.next) == 0 {
			t.Reset()
			return StepResult{Outcome: NoMatch}
		}
		t.live = st.next
		return StepResult{Outcome: Advancing}
	}

	res := StepResult{Outcome: Matched, Matches: st.matches}
	if t.a.config.Policy == ir.PolicyContinue && len(st.next) > 0 {
		t.live = st.next
		return res
	}

	t.Reset()
	if !st.consumed {
		// fragment đóng trước c: c thuộc về lần thử kế tiếp
		t.replay(c, &res)
	}
	return res
}

// Flush kết thúc luồng: fragment đang tích luỹ mà bộ đệm đã khớp trọn thì được
// báo Matched (không có ký tự kế tiếp để đóng nó). Không có gì hoàn tất thì
// trả về NoMatch. Traversal luôn về root sau Flush.
//
// Vị trí đứng tại node terminal không được báo lại: chúng đã được báo ở bước
// tới node đó.
func (t *Traversal) Flush() StepResult {
	st := newStepState(t)
	for _, p := range t.live {
		if p.edge < 0 {
			continue
		}
		if r, ok := p.run.(interface{ Accepted() bool }); ok && r.Accepted() {
			st.complete(p.node.edges[p.edge].Child, p.length, false)
		}
	}
	t.Reset()
	if len(st.matches) == 0 {
		return StepResult{Outcome: NoMatch}
	}
	return StepResult{Outcome: Matched, Matches: st.matches}
}

// replay đưa lại c từ root sau khi reset. Fragment không thể Satisfied ở ký
// tự đầu nên không đệ quy.
func (t *Traversal) replay(c rune, res *StepResult) {
	t.attempt = append(t.attempt, c)
	st := newStepState(t)
	st.advance(position{node: t.a.dag.Root, edge: -1}, c)
	res.Matches = append(res.Matches, st.matches...)

	if len(st.next) == 0 || (len(st.matches) > 0 && t.a.config.Policy == ir.PolicyShortest) {
		t.Reset()
		return
	}
	t.live = st.next
}

// ---------- stepState ----------

type stepState struct {
	t        *Traversal
	next     []position
	seen     map[positionKey]bool
	matches  []Match
	consumed bool
}

func newStepState(t *Traversal) *stepState {
	return &stepState{t: t, seen: make(map[positionKey]bool)}
}

func (st *stepState) keep(p position) {
	k := positionKey{node: p.node, edge: p.edge}
	if st.seen[k] {
		return
	}
	st.seen[k] = true
	st.next = append(st.next, p)
}

func (st *stepState) advance(p position, c rune) {
	if p.edge < 0 {
		st.fromNode(p.node, c, p.length)
		return
	}
	e := p.node.edges[p.edge]
	switch p.run.Feed(c) {
	case matcher.Continuing:
		p.length++
		st.keep(p)
	case matcher.Satisfied:
		// fragment hoàn tất ngay trước c; c chưa được tiêu thụ
		st.complete(e.Child, p.length, false)
		st.fromNode(e.Child, c, p.length)
	case matcher.Failed:
	}
}

// fromNode thử c trên mọi cạnh đi ra của n.
func (st *stepState) fromNode(n *Node, c rune, length int) {
	for i, e := range n.edges {
		run := e.Matcher.Begin()
		switch run.Feed(c) {
		case matcher.Satisfied:
			st.complete(e.Child, length+1, true)
			if !e.Child.IsLeaf() {
				st.keep(position{node: e.Child, edge: -1, length: length + 1})
			}
		case matcher.Continuing:
			st.keep(position{node: n, edge: i, run: run, length: length + 1})
		case matcher.Failed:
		}
	}
}

func (st *stepState) complete(n *Node, length int, consumed bool) {
	if !n.terminal {
		return
	}
	if consumed {
		st.consumed = true
	}
	text := string(st.t.attempt[:length])
	for _, idx := range n.patterns {
		p := st.t.a.patterns[idx]
		st.matches = append(st.matches, Match{
			Index:     idx,
			PatternID: p.ID,
			Name:      p.DisplayName(),
			Kind:      p.Kind,
			Text:      text,
		})
	}
}
