package matcher

import (
	"fmt"
	"regexp/syntax"
	"unicode"
	"unicode/utf8"
)

// ExactMatcher khớp đúng một ký tự. Không có trạng thái.
type ExactMatcher struct {
	letter rune
	fold   bool
}

// NewExactMatcher: fold = true thì letter được thay bằng đại diện của lớp
// SimpleFold (xem FoldRune), để 'k', 'K' và 'K' (Kelvin) cùng một key.
func NewExactMatcher(letter rune, fold bool) ExactMatcher {
	if fold {
		letter = FoldRune(letter)
	}
	return ExactMatcher{letter: letter, fold: fold}
}

// FoldRune trả về rune nhỏ nhất trong vòng unicode.SimpleFold chứa r.
func FoldRune(r rune) rune {
	lo := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < lo {
			lo = f
		}
	}
	return lo
}

// FoldString áp dụng FoldRune cho từng rune.
func FoldString(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		out = append(out, FoldRune(r))
	}
	return string(out)
}

// ASCIIFoldOrbit: mọi rune trong vòng SimpleFold của r đều là ASCII.
// 's' và 'k' không thoả vì có 'ſ' và Kelvin sign.
func ASCIIFoldOrbit(r rune) bool {
	if r >= utf8.RuneSelf {
		return false
	}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func (m ExactMatcher) Letter() rune { return m.letter }

// Feed so sánh theo giá trị (không theo identity).
func (m ExactMatcher) Feed(r rune) Outcome {
	if r == m.letter {
		return Satisfied
	}
	if m.fold && FoldRune(r) == m.letter {
		return Satisfied
	}
	return Failed
}

func (m ExactMatcher) Key() Key {
	return Key{Kind: EdgeExact, Letter: m.letter, Fold: m.fold}
}

// Begin: ExactMatcher không có trạng thái nên chính nó là Run.
func (m ExactMatcher) Begin() Run { return m }

func (m ExactMatcher) String() string { return m.Key().String() }

// FragmentMatcher khớp một chuỗi ký tự có độ dài thay đổi bằng regex.
// Chương trình đã biên dịch là read-only; bộ đệm tích luỹ nằm trong FragmentRun.
type FragmentMatcher struct {
	expr     string
	source   string
	prog     *syntax.Prog
	maxRunes int
}

// NewFragmentMatcher biên dịch expr ngay lập tức; lỗi cú pháp trả về
// *PatternCompileError chứ không hoãn tới lúc so khớp.
func NewFragmentMatcher(expr string, fold bool, maxRunes int) (*FragmentMatcher, error) {
	source := expr
	if fold {
		source = "(?i)" + expr
	}
	re, err := syntax.Parse(source, syntax.Perl)
	if err != nil {
		return nil, &PatternCompileError{Pattern: expr, Kind: "regex", Err: err}
	}
	prog, err := syntax.Compile(re.Simplify())
	if err != nil {
		return nil, &PatternCompileError{Pattern: expr, Kind: "regex", Err: err}
	}
	return &FragmentMatcher{expr: expr, source: source, prog: prog, maxRunes: maxRunes}, nil
}

func (m *FragmentMatcher) Expr() string { return m.expr }

func (m *FragmentMatcher) Key() Key {
	return Key{Kind: EdgeFragment, Expr: m.source}
}

func (m *FragmentMatcher) Begin() Run { return m.NewRun() }

func (m *FragmentMatcher) String() string { return m.Key().String() }

// NewRun tạo trạng thái tích luỹ rỗng cho một lần đi qua cạnh.
func (m *FragmentMatcher) NewRun() *FragmentRun {
	return &FragmentRun{
		m:      m,
		starts: []uint32{uint32(m.prog.Start)},
		prev:   -1,
	}
}

// closure mở rộng các pc qua các lệnh không tiêu thụ ký tự tại vị trí có
// ngữ cảnh ctx. Trả về các pc tiêu thụ ký tự và cờ đã tới InstMatch.
func (m *FragmentMatcher) closure(starts []uint32, ctx syntax.EmptyOp) ([]uint32, bool) {
	seen := make([]bool, len(m.prog.Inst))
	stack := make([]uint32, 0, len(starts))
	for i := len(starts) - 1; i >= 0; i-- {
		stack = append(stack, starts[i])
	}
	var consumers []uint32
	matched := false
	for len(stack) > 0 {
		pc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[pc] {
			continue
		}
		seen[pc] = true
		inst := &m.prog.Inst[pc]
		switch inst.Op {
		case syntax.InstAlt, syntax.InstAltMatch:
			// Out trước Arg để giữ thứ tự ưu tiên
			stack = append(stack, inst.Arg, inst.Out)
		case syntax.InstCapture, syntax.InstNop:
			stack = append(stack, inst.Out)
		case syntax.InstEmptyWidth:
			if syntax.EmptyOp(inst.Arg)&^ctx == 0 {
				stack = append(stack, inst.Out)
			}
		case syntax.InstMatch:
			matched = true
		case syntax.InstFail:
		default:
			consumers = append(consumers, pc)
		}
	}
	return consumers, matched
}

func matchInst(inst *syntax.Inst, r rune) bool {
	switch inst.Op {
	case syntax.InstRune, syntax.InstRune1:
		return inst.MatchRune(r)
	case syntax.InstRuneAny:
		return true
	case syntax.InstRuneAnyNotNL:
		return r != '\n'
	default:
		return false
	}
}

// FragmentRun là bộ đệm tích luỹ của FragmentMatcher cho một traversal.
type FragmentRun struct {
	m        *FragmentMatcher
	starts   []uint32
	buf      []rune
	prev     rune
	accepted bool
}

// Feed thêm r vào bộ đệm (tạm thời) rồi kiểm tra lại regex:
//   - vẫn còn khả năng khớp → commit, Continuing
//   - hết khả năng, bộ đệm trước đó rỗng → Failed
//   - hết khả năng, bộ đệm trước đó khớp trọn → Satisfied (maximal munch, r thuộc về token sau)
//   - hết khả năng, bộ đệm trước đó không khớp trọn → Failed, kể cả khi một
//     tiền tố ngắn hơn từng khớp (không quay lui)
func (r *FragmentRun) Feed(c rune) Outcome {
	next := r.advance(c)
	if len(next) == 0 {
		if len(r.buf) == 0 {
			return Failed
		}
		if r.accepted {
			return Satisfied
		}
		return Failed
	}
	r.buf = append(r.buf, c)
	r.prev = c
	r.starts = next
	_, r.accepted = r.m.closure(next, syntax.EmptyOpContext(c, -1))
	return Continuing
}

func (r *FragmentRun) advance(c rune) []uint32 {
	if r.m.maxRunes > 0 && len(r.buf) >= r.m.maxRunes {
		return nil
	}
	consumers, _ := r.m.closure(r.starts, syntax.EmptyOpContext(r.prev, c))
	seen := make(map[uint32]bool, len(consumers))
	var next []uint32
	for _, pc := range consumers {
		inst := &r.m.prog.Inst[pc]
		if !matchInst(inst, c) || seen[inst.Out] {
			continue
		}
		seen[inst.Out] = true
		next = append(next, inst.Out)
	}
	return next
}

// Text là đoạn đã tích luỹ (đã commit).
func (r *FragmentRun) Text() string { return string(r.buf) }

func (r *FragmentRun) Len() int { return len(r.buf) }

// Accepted: bộ đệm hiện tại có phải một match trọn vẹn không.
func (r *FragmentRun) Accepted() bool { return r.accepted }

// -------------------- Errors --------------------

// PatternCompileError: pattern không biên dịch được; luôn trả về lúc dựng automaton.
type PatternCompileError struct {
	Index   int
	Kind    string
	Pattern string
	Err     error
}

func (e *PatternCompileError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("compile pattern %q: %v", e.Pattern, e.Err)
	}
	return fmt.Sprintf("compile %s pattern #%d %q: %v", e.Kind, e.Index, e.Pattern, e.Err)
}

func (e *PatternCompileError) Unwrap() error { return e.Err }

type UnsupportedKindError struct{ Kind string }

func (e *UnsupportedKindError) Error() string { return "unsupported pattern kind: " + e.Kind }
