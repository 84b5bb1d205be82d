package matcher

// Core type definitions for per-edge matchers.

import "fmt"

// Outcome là kết quả khi đưa một ký tự vào matcher.
type Outcome int

const (
	Satisfied  Outcome = iota // pattern của cạnh đã hoàn tất
	Continuing                // cần thêm ký tự
	Failed                    // không còn khớp
)

func (o Outcome) String() string {
	switch o {
	case Satisfied:
		return "Satisfied"
	case Continuing:
		return "Continuing"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// EdgeKind phân biệt hai biến thể matcher.
type EdgeKind int

const (
	EdgeExact EdgeKind = iota
	EdgeFragment
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeExact:
		return "Exact"
	case EdgeFragment:
		return "Fragment"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

// Key là định danh theo giá trị của một matcher; hai matcher có cùng Key
// được coi là cùng một cạnh trong graph.
type Key struct {
	Kind   EdgeKind
	Letter rune
	Fold   bool
	Expr   string
}

func (k Key) String() string {
	if k.Kind == EdgeFragment {
		return fmt.Sprintf("Fragment{%q}", k.Expr)
	}
	if k.Fold {
		return fmt.Sprintf("Exact{%q,fold}", k.Letter)
	}
	return fmt.Sprintf("Exact{%q}", k.Letter)
}

// Run là trạng thái tiêu thụ ký tự dọc theo một cạnh. Mỗi traversal sở hữu
// Run riêng; matcher trong graph không bao giờ bị ghi.
// Một Run kết thúc khi Feed trả về Satisfied hoặc Failed.
type Run interface {
	Feed(r rune) Outcome
}

// CharMatcher là nhãn của một cạnh trong graph.
type CharMatcher interface {
	Key() Key
	Begin() Run
	String() string
}
