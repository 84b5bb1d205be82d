package dag

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	ir "github.com/PhucNguyen204/streammatch/automaton"
	"github.com/PhucNguyen204/streammatch/automaton/matcher"
)

func mustAutomaton(t *testing.T, cfg ir.Config, patterns ...ir.Pattern) *Automaton {
	t.Helper()
	a, err := New(patterns, cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return a
}

func matchTexts(ms []Match) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Name+"="+m.Text)
	}
	return out
}

func TestLiteralRoundTrip(t *testing.T) {
	for _, lit := range []string{"f", "foo", "héllo", "a b"} {
		a := mustAutomaton(t, ir.DefaultConfig(), ir.NewLiteral(lit))

		var want []StepOutcome
		n := len([]rune(lit))
		for i := 0; i < n-1; i++ {
			want = append(want, Advancing)
		}
		want = append(want, Matched)

		if diff := cmp.Diff(want, a.Outcomes(lit)); diff != "" {
			t.Fatalf("literal %q outcomes mismatch (-want +got):\n%s", lit, diff)
		}
	}
}

func TestPrefixSharing(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig(),
		ir.NewLiteral("foo"), ir.NewLiteral("bar"), ir.NewLiteral("baz"), ir.NewLiteral("barz"))

	stats := a.GetStatistics()
	// f-o-o, b-a-r, z dưới "ba", z dưới "bar"
	if stats.EdgeCount != 8 || stats.NodeCount != 9 {
		t.Fatalf("stats = %s", stats)
	}
	if stats.TerminalCount != 4 || stats.MaxDepth != 4 {
		t.Fatalf("stats = %s", stats)
	}

	b, ok := a.Root().Child(matcher.NewExactMatcher('b', false).Key())
	if !ok {
		t.Fatalf("root should have a 'b' edge")
	}
	if a.Root().EdgeCount() != 2 || b.EdgeCount() != 1 {
		t.Fatalf("root edges = %d, b edges = %d", a.Root().EdgeCount(), b.EdgeCount())
	}

	want := []StepOutcome{Advancing, Advancing, Matched, NoMatch}
	if diff := cmp.Diff(want, a.Outcomes("barz")); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
}

func TestPrefixSharingContinuePolicy(t *testing.T) {
	a := mustAutomaton(t, ir.ExhaustiveConfig(), ir.NewLiteral("bar"), ir.NewLiteral("barz"))

	want := []StepOutcome{Advancing, Advancing, Matched, Matched}
	if diff := cmp.Diff(want, a.Outcomes("barz")); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bar=bar", "barz=barz"}, matchTexts(a.MatchString("barz"))); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestFragmentMaximalMunch(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig(), ir.NewRegexFragment(" *").WithName("ws"))

	var got []StepResult
	for _, r := range "  x" {
		got = append(got, a.Step(r))
	}
	want := []StepResult{
		{Outcome: Advancing},
		{Outcome: Advancing},
		{Outcome: Matched, Matches: []Match{{Index: 0, Name: "ws", Kind: ir.KindRegex, Text: "  "}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	if !a.AtRoot() {
		t.Fatalf("x cannot start a whitespace run; cursor should be at root")
	}
}

func TestFragmentReplaysClosingCharacter(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig(), ir.NewRegexFragment(" +"), ir.NewLiteral("x"))

	want := []StepOutcome{Advancing, Advancing, Matched}
	got := make([]StepOutcome, 0, 3)
	var last StepResult
	for _, r := range "  x" {
		last = a.Step(r)
		got = append(got, last.Outcome)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{" +=  ", "x=x"}, matchTexts(last.Matches)); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestFragmentReplayStartsNextAttempt(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig(), ir.NewRegexFragment("[0-9]+"), ir.NewLiteral("px"))

	want := []StepOutcome{Advancing, Advancing, Matched, Matched}
	if diff := cmp.Diff(want, a.Outcomes("12px")); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"[0-9]+=12", "px=px"}, matchTexts(a.MatchString("12px"))); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestResetOnFailure(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig(), ir.NewLiteral("foo"))

	want := []StepOutcome{Advancing, Advancing, NoMatch}
	var got []StepOutcome
	for _, r := range "fox" {
		got = append(got, a.Step(r).Outcome)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if !a.AtRoot() {
		t.Fatalf("cursor should be back at root")
	}

	// ký tự kế tiếp được xét như bắt đầu mới
	got = got[:0]
	for _, r := range "foo" {
		got = append(got, a.Step(r).Outcome)
	}
	if diff := cmp.Diff([]StepOutcome{Advancing, Advancing, Matched}, got); diff != "" {
		t.Fatalf("fresh attempt mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyFragmentEdgeCase(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig(), ir.NewRegexFragment(" *"))

	res := a.Step('x')
	if res.Outcome != NoMatch || len(res.Matches) != 0 {
		t.Fatalf("result = %s, want NoMatch without matches", res)
	}
	if !a.AtRoot() {
		t.Fatalf("cursor should stay at root")
	}
}

func TestCompileFailure(t *testing.T) {
	a, err := New([]ir.Pattern{ir.NewLiteral("foo"), ir.NewRegexFragment("(")}, ir.DefaultConfig())
	if err == nil {
		t.Fatalf("expected compile error")
	}
	var pce *matcher.PatternCompileError
	if !errors.As(err, &pce) {
		t.Fatalf("expected *PatternCompileError, got %T", err)
	}
	if pce.Index != 1 {
		t.Fatalf("index = %d, want 1", pce.Index)
	}
	if a != nil {
		t.Fatalf("no automaton may be returned on error")
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := New([]ir.Pattern{ir.NewLiteral("a")}, ir.DefaultConfig().WithMaxFragmentRunes(-3))
	if !errors.Is(err, ir.ErrNegativeFragmentLimit) {
		t.Fatalf("expected ErrNegativeFragmentLimit, got %v", err)
	}
}

func TestDeterminism(t *testing.T) {
	patterns := []ir.Pattern{
		ir.NewLiteral("foo"), ir.NewLiteral("bar"), ir.NewLiteral("baz"), ir.NewLiteral("barz"),
		ir.NewRegexFragment(" *"), ir.NewRegexFragment("[0-9]+"),
	}
	input := "foo  bar 12barz fox  baz99 "

	run := func() []StepResult {
		a := mustAutomaton(t, ir.DefaultConfig(), patterns...)
		var out []StepResult
		for _, r := range input {
			out = append(out, a.Step(r))
		}
		return out
	}
	first := run()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, run()); diff != "" {
			t.Fatalf("replay %d differs (-first +replay):\n%s", i, diff)
		}
	}
}

func TestGreedyCompletionWins(t *testing.T) {
	// literal "ab" và fragment chữ thường chồng lấn; hoàn tất literal được ưu tiên
	a := mustAutomaton(t, ir.DefaultConfig(), ir.NewLiteral("ab"), ir.NewRegexFragment("[a-z]+"))

	want := []StepOutcome{Advancing, Matched, NoMatch}
	if diff := cmp.Diff(want, a.Outcomes("ab ")); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ab=ab"}, matchTexts(a.MatchString("ab"))); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestParallelBranchesTracked(t *testing.T) {
	// "ab" thất bại ở 'c' nhưng fragment vẫn sống rồi đóng ở ' '
	a := mustAutomaton(t, ir.DefaultConfig(), ir.NewLiteral("ab"), ir.NewRegexFragment("[a-c]+"))

	want := []StepOutcome{Advancing, Matched, NoMatch}
	if diff := cmp.Diff(want, a.Outcomes("ab ")); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}

	t2 := a.NewTraversal()
	t2.Step('a')
	if t2.LiveCount() != 2 {
		t.Fatalf("live positions = %d, want 2", t2.LiveCount())
	}
	t2.Step('c')
	if t2.LiveCount() != 1 {
		t.Fatalf("live positions after c = %d, want 1", t2.LiveCount())
	}
	res := t2.Step(' ')
	if diff := cmp.Diff([]string{"[a-c]+=ac"}, matchTexts(res.Matches)); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicatePatternsShareTerminal(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig(),
		ir.NewLiteral("foo").WithName("first").WithID(10),
		ir.NewLiteral("foo").WithName("second").WithID(20))

	if a.EdgeCount() != 3 {
		t.Fatalf("edge count = %d, want 3", a.EdgeCount())
	}
	ms := a.MatchString("foo")
	if len(ms) != 2 || ms[0].PatternID != 10 || ms[1].PatternID != 20 {
		t.Fatalf("matches = %+v", ms)
	}
}

func TestCaseInsensitive(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig().WithCaseInsensitive(true),
		ir.NewLiteral("GET"), ir.NewRegexFragment("http"))

	if diff := cmp.Diff([]string{"GET=get"}, matchTexts(a.MatchString("get"))); diff != "" {
		t.Fatalf("literal fold mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"http=HTTP"}, matchTexts(a.MatchString("HTTP "))); diff != "" {
		t.Fatalf("fragment fold mismatch (-want +got):\n%s", diff)
	}
}

func TestNoPatterns(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig())
	if a.Step('a').Outcome != NoMatch {
		t.Fatalf("empty automaton should never advance")
	}
	if a.PatternCount() != 0 || a.NodeCount() != 1 {
		t.Fatalf("patterns=%d nodes=%d", a.PatternCount(), a.NodeCount())
	}
}

func TestAccessors(t *testing.T) {
	patterns := []ir.Pattern{ir.NewLiteral("ab"), ir.NewRegexFragment("c+")}
	a := mustAutomaton(t, ir.DefaultConfig(), patterns...)

	if a.PatternCount() != 2 || a.NodeCount() != 4 || a.EdgeCount() != 3 {
		t.Fatalf("patterns=%d nodes=%d edges=%d", a.PatternCount(), a.NodeCount(), a.EdgeCount())
	}
	stats := a.GetStatistics()
	if stats.ExactEdges != 2 || stats.FragmentEdges != 1 {
		t.Fatalf("stats = %s", stats)
	}
	got := a.Patterns()
	got[0].Text = "mutated"
	if a.Patterns()[0].Text != "ab" {
		t.Fatalf("Patterns must return a copy")
	}
	if a.Config().Policy != ir.PolicyShortest {
		t.Fatalf("config policy")
	}

	var nilAutomaton *Automaton
	if nilAutomaton.PatternCount() != 0 || nilAutomaton.Root() != nil {
		t.Fatalf("nil automaton accessors")
	}
}

func TestConcurrentTraversals(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig(), ir.NewRegexFragment(" *"), ir.NewLiteral("foo"))

	// xen kẽ hai traversal: trạng thái fragment không bị chia sẻ
	t1 := a.NewTraversal()
	t2 := a.NewTraversal()
	t1.Step(' ')
	t1.Step(' ')
	if res := t2.Step('x'); res.Outcome != NoMatch {
		t.Fatalf("t2 result = %s", res)
	}
	res := t1.Step('y')
	if diff := cmp.Diff([]string{" *=  "}, matchTexts(res.Matches)); diff != "" {
		t.Fatalf("t1 matches mismatch (-want +got):\n%s", diff)
	}

	input := "foo   foo fo  foo"
	want := a.Outcomes(input)

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if diff := cmp.Diff(want, a.Outcomes(input)); diff != "" {
				errs <- diff
			}
		}()
	}
	wg.Wait()
	close(errs)
	for diff := range errs {
		t.Fatalf("concurrent traversal differs:\n%s", diff)
	}
}

func TestTraversalIntrospection(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig(), ir.NewLiteral("abc"))
	tr := a.NewTraversal()
	tr.Step('a')
	tr.Step('b')
	if tr.Pending() != "ab" || tr.Steps() != 2 || tr.AtRoot() {
		t.Fatalf("pending=%q steps=%d atRoot=%v", tr.Pending(), tr.Steps(), tr.AtRoot())
	}
	tr.Reset()
	if tr.Pending() != "" || !tr.AtRoot() {
		t.Fatalf("reset should clear pending input")
	}
}

func TestWalkPreOrder(t *testing.T) {
	a := mustAutomaton(t, ir.DefaultConfig(),
		ir.NewLiteral("ab"), ir.NewLiteral("ac"), ir.NewRegexFragment("x+"))

	var ids []NodeId
	var terminals int
	a.Walk(func(n *Node) bool {
		ids = append(ids, n.ID)
		if n.IsTerminal() {
			terminals++
		}
		return true
	})
	if diff := cmp.Diff([]NodeId{0, 1, 2, 3, 4}, ids); diff != "" {
		t.Fatalf("walk order mismatch (-want +got):\n%s", diff)
	}
	if terminals != 3 {
		t.Fatalf("terminals = %d, want 3", terminals)
	}

	visited := 0
	a.Walk(func(n *Node) bool { visited++; return visited < 2 })
	if visited != 2 {
		t.Fatalf("walk should stop early, visited %d", visited)
	}
}
