package dag

import (
	"context"
	"errors"
	"io"
)

// EOF là rune truyền cho StepFn khi Flush ở cuối luồng tạo ra match.
const EOF rune = -1

// StepFn nhận kết quả của từng ký tự; offset là vị trí byte của ký tự trong
// luồng. Trả về error để dừng Run.
type StepFn func(offset int, r rune, res StepResult) error

// Run đưa toàn bộ luồng rd qua một traversal mới của a. Context được kiểm tra
// giữa các ký tự. Tại io.EOF traversal được Flush; nếu có match, fn được gọi
// thêm một lần với r == EOF và offset là tổng số byte.
func Run(ctx context.Context, a *Automaton, rd io.RuneReader, fn StepFn) error {
	t := a.NewTraversal()
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, size, err := rd.ReadRune()
		if errors.Is(err, io.EOF) {
			if res := t.Flush(); res.IsMatched() && fn != nil {
				return fn(offset, EOF, res)
			}
			return nil
		}
		if err != nil {
			return err
		}
		res := t.Step(r)
		if fn != nil {
			if err := fn(offset, r, res); err != nil {
				return err
			}
		}
		offset += size
	}
}

// MatchString chạy s qua một traversal mới và gom mọi Match theo thứ tự,
// kể cả match do Flush ở cuối chuỗi.
func (a *Automaton) MatchString(s string) []Match {
	t := a.NewTraversal()
	var out []Match
	for _, r := range s {
		res := t.Step(r)
		out = append(out, res.Matches...)
	}
	return append(out, t.Flush().Matches...)
}

// Outcomes trả về chuỗi StepOutcome khi chạy s qua một traversal mới, mỗi
// ký tự một phần tử (không Flush).
func (a *Automaton) Outcomes(s string) []StepOutcome {
	t := a.NewTraversal()
	out := make([]StepOutcome, 0, len(s))
	for _, r := range s {
		out = append(out, t.Step(r).Outcome)
	}
	return out
}
