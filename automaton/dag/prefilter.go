package dag

import (
	"fmt"
	"unicode"

	ac "github.com/petar-dambovaliev/aho-corasick"

	ir "github.com/PhucNguyen204/streammatch/automaton"
	"github.com/PhucNguyen204/streammatch/automaton/matcher"
)

//
// Literal prefilter: Aho–Corasick trên toàn bộ literal pattern để quét nhanh
// cả buffer khi caller có sẵn input (không thay thế traversal theo từng ký tự).
//

// -------------------- Statistics --------------------

type PrefilterStats struct {
	// Số literal khác nhau trong automaton AC
	PatternCount int `json:"pattern_count"`
	// Số pattern literal đóng góp (kể cả trùng)
	LiteralCount int `json:"literal_count"`
	// Ước lượng footprint bộ nhớ
	MemoryUsage int `json:"memory_usage"`
	// Literal bị bỏ do MinPatternLength/MaxPatterns
	DroppedLiterals int `json:"dropped_literals"`
	// false: AC không thấy được mọi input mà literal pattern khớp
	// (có literal bị bỏ, hoặc fold chạm rune ngoài ASCII)
	Complete bool `json:"complete"`
}

func (s PrefilterStats) StrategyName() string {
	return fmt.Sprintf("AhoCorasick (%d patterns)", s.PatternCount)
}

// -------------------- Config --------------------

type PrefilterConfig struct {
	// Bật khớp ASCII case-insensitive trong AC
	CaseInsensitive bool `json:"case_insensitive"`
	// Bỏ qua pattern quá ngắn
	MinPatternLength int `json:"min_pattern_length"`
	// Giới hạn số pattern (nil = no limit)
	MaxPatterns *int `json:"max_patterns"`
}

func DefaultPrefilterConfig() PrefilterConfig {
	max := 1000
	return PrefilterConfig{
		CaseInsensitive:  false,
		MinPatternLength: 1,
		MaxPatterns:      &max,
	}
}

// PrefilterConfigFrom suy ra cấu hình prefilter từ cấu hình automaton.
func PrefilterConfigFrom(cfg ir.Config) PrefilterConfig {
	pc := DefaultPrefilterConfig()
	pc.CaseInsensitive = cfg.CaseInsensitive
	return pc
}

// -------------------- Prefilter --------------------

type LiteralPrefilter struct {
	// Automaton AC (nil nếu không có pattern)
	ac *ac.AhoCorasick
	// Toàn bộ pattern (giữ nguyên raw để debug/hiển thị)
	patterns []string
	// chỉ số literal trong AC -> chỉ số pattern trong danh sách đầu vào
	literalToPatterns map[int][]int
	stats             PrefilterStats
	cfg               PrefilterConfig
}

func (p *LiteralPrefilter) Stats() PrefilterStats { return p.stats }

// -------------------- Builder nội bộ --------------------

type prefilterBuilder struct {
	cfg PrefilterConfig

	// Dedupe theo key (phân biệt hoa/thường tùy CaseInsensitive)
	dedupe            map[string]int
	combined          []string
	literalToPatterns map[int][]int

	literalCount int
	dropped      int
	// fold có rune mà AsciiCaseInsensitive không bao phủ hết
	foldGap bool
}

func newPrefilterBuilder(cfg PrefilterConfig) *prefilterBuilder {
	return &prefilterBuilder{
		cfg:               cfg,
		dedupe:            make(map[string]int),
		literalToPatterns: make(map[int][]int),
	}
}

func (pb *prefilterBuilder) keyFor(pattern string) string {
	if pb.cfg.CaseInsensitive {
		return matcher.FoldString(pattern)
	}
	return pattern
}

func (pb *prefilterBuilder) noteFoldGap(literal string) {
	if !pb.cfg.CaseInsensitive || pb.foldGap {
		return
	}
	for _, r := range literal {
		// rune không có dạng fold khác thì so byte là đủ
		if unicode.SimpleFold(r) != r && !matcher.ASCIIFoldOrbit(r) {
			pb.foldGap = true
			return
		}
	}
}

// add khớp chữ ký hook WithLiteralExtraction.
func (pb *prefilterBuilder) add(literal string, patternIndex int) error {
	pb.literalCount++
	if len(literal) < pb.cfg.MinPatternLength {
		pb.dropped++
		return nil
	}
	key := pb.keyFor(literal)
	idx, ok := pb.dedupe[key]
	if !ok {
		// enforce max patterns nếu có
		if pb.cfg.MaxPatterns != nil && len(pb.combined) >= *pb.cfg.MaxPatterns {
			pb.dropped++
			return nil
		}
		idx = len(pb.combined)
		pb.combined = append(pb.combined, literal)
		pb.dedupe[key] = idx
	}
	pb.literalToPatterns[idx] = append(pb.literalToPatterns[idx], patternIndex)
	pb.noteFoldGap(literal)
	return nil
}

func (pb *prefilterBuilder) build() *LiteralPrefilter {
	total := len(pb.combined)
	mem := 0
	for _, s := range pb.combined {
		mem += len(s)
	}

	var automaton *ac.AhoCorasick
	if total > 0 {
		opts := ac.Opts{
			AsciiCaseInsensitive: pb.cfg.CaseInsensitive,
			MatchOnlyWholeWords:  false,
			MatchKind:            ac.LeftMostLongestMatch,
			DFA:                  true,
		}
		builder := ac.NewAhoCorasickBuilder(opts)
		acBuilt := builder.Build(pb.combined) // index pattern của AC == index trong combined
		automaton = &acBuilt
	}

	return &LiteralPrefilter{
		ac:                automaton,
		patterns:          append([]string(nil), pb.combined...),
		literalToPatterns: pb.literalToPatterns,
		stats: PrefilterStats{
			PatternCount:    total,
			LiteralCount:    pb.literalCount,
			MemoryUsage:     mem,
			DroppedLiterals: pb.dropped,
			Complete:        pb.dropped == 0 && !pb.foldGap,
		},
		cfg: pb.cfg,
	}
}

// -------------------- Public API --------------------

// Complete: kết quả quét không thiếu literal nào. Khi false, HasMatch == false
// không có nghĩa là không literal pattern nào khớp.
func (p *LiteralPrefilter) Complete() bool { return p.stats.Complete }

// Fast path boolean trên chuỗi bất kỳ
func (p *LiteralPrefilter) HasMatch(text string) bool {
	if p.stats.PatternCount == 0 || p.ac == nil {
		return false
	}
	return len(p.ac.FindAll(text)) > 0
}

// FindMatches trả về các literal không chồng lấn (leftmost-longest) trong text.
func (p *LiteralPrefilter) FindMatches(text string) []PrefilterMatch {
	out := make([]PrefilterMatch, 0)
	if p.stats.PatternCount == 0 || p.ac == nil {
		return out
	}
	for _, m := range p.ac.FindAll(text) {
		idx := m.Pattern()
		pat := ""
		if idx >= 0 && idx < len(p.patterns) {
			pat = p.patterns[idx]
		}
		out = append(out, PrefilterMatch{
			Pattern:  pat,
			Start:    m.Start(),
			End:      m.End(),
			Patterns: append([]int(nil), p.literalToPatterns[idx]...),
		})
	}
	return out
}

// -------------------- Helpers --------------------

// PrefilterMatch: Start/End là byte offset trong text.
type PrefilterMatch struct {
	Pattern  string `json:"pattern"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Patterns []int  `json:"patterns"`
}

func (m PrefilterMatch) Len() int      { return m.End - m.Start }
func (m PrefilterMatch) IsEmpty() bool { return m.Start == m.End }
func (m PrefilterMatch) MatchedText(src string) (string, bool) {
	if m.Start < 0 || m.End > len(src) || m.Start > m.End {
		return "", false
	}
	return src[m.Start:m.End], true
}
