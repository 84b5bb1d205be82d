package matcher

import (
	"fmt"

	ir "github.com/PhucNguyen204/streammatch/automaton"
)

// Hook được gọi tại các pha biên dịch khác nhau.
// Trả về error nếu hook thất bại; Compile dừng ngay.
type CompilationHookFn func(ctx *CompilationContext) error

// Các pha biên dịch nơi hook có thể được đăng ký.
type CompilationPhase int

const (
	PatternDiscovery CompilationPhase = iota // từng pattern, ngay sau khi pattern đó biên dịch xong
	PreCompilation                           // trước khi biên dịch cả tập
	PostCompilation                          // sau khi biên dịch hoàn tất
)

func (p CompilationPhase) String() string {
	switch p {
	case PatternDiscovery:
		return "PatternDiscovery"
	case PreCompilation:
		return "PreCompilation"
	case PostCompilation:
		return "PostCompilation"
	default:
		return fmt.Sprintf("CompilationPhase(%d)", int(p))
	}
}

// Ngữ cảnh truyền cho hook trong quá trình compile.
type CompilationContext struct {
	// Pattern đang xử lý (nil với context tóm tắt)
	Pattern *ir.Pattern

	// Vị trí trong danh sách đầu vào
	Index int

	// Tổng số pattern (chỉ có ý nghĩa ở context tóm tắt)
	PatternCount int

	// Literal sau khi chuẩn hoá (FoldString nếu fold)
	Literal string

	IsLiteral       bool
	CaseInsensitive bool
}

func newPatternContext(p *ir.Pattern, index int, fold bool) *CompilationContext {
	return &CompilationContext{
		Pattern:         p,
		Index:           index,
		Literal:         p.Text,
		IsLiteral:       p.IsLiteral(),
		CaseInsensitive: fold,
	}
}

// Tạo context tóm tắt (không gắn với pattern cụ thể), dùng cho pre/post compilation.
func NewSummaryContext(patternCount int, fold bool) *CompilationContext {
	return &CompilationContext{
		Index:           -1,
		PatternCount:    patternCount,
		CaseInsensitive: fold,
	}
}

func (c *CompilationContext) IsSummary() bool {
	return c.Pattern == nil
}

// Mô tả ngắn gọn context (debug/log).
func (c *CompilationContext) Description() string {
	if c.IsSummary() {
		return fmt.Sprintf("Summary context (%d patterns)", c.PatternCount)
	}
	return fmt.Sprintf("Pattern context: #%d %s %q", c.Index, c.Pattern.Kind, c.Pattern.Text)
}
