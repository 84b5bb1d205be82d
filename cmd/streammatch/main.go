package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/namsral/flag"

	ir "github.com/PhucNguyen204/streammatch/automaton"
	"github.com/PhucNguyen204/streammatch/automaton/dag"
	"github.com/PhucNguyen204/streammatch/pkg/patternset"
)

func main() {
	var (
		patternsFile string
		steps        bool
		fold         bool
		cont         bool
	)
	flag.StringVar(&patternsFile, "patterns", "", "YAML pattern set file (required)")
	flag.BoolVar(&steps, "steps", false, "print the outcome of every character")
	flag.BoolVar(&fold, "i", false, "case-insensitive matching")
	flag.BoolVar(&cont, "continue", false, "keep extendable branches after a match")
	flag.Parse()
	if patternsFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	b, err := os.ReadFile(patternsFile)
	if err != nil {
		log.Fatalf("read patterns: %v", err)
	}
	set, err := patternset.LoadPatternSetYAML(b)
	if err != nil {
		log.Fatalf("%s: %v", patternsFile, err)
	}

	cfg := ir.DefaultConfig().WithCaseInsensitive(fold)
	if cont {
		cfg = cfg.WithPolicy(ir.PolicyContinue)
	}
	a, err := dag.New(set.Patterns, cfg)
	if err != nil {
		log.Fatalf("build automaton: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	err = dag.Run(ctx, a, bufio.NewReader(os.Stdin), func(off int, r rune, res dag.StepResult) error {
		if steps {
			ch := "EOF"
			if r != dag.EOF {
				ch = strconv.QuoteRune(r)
			}
			fmt.Fprintf(out, "%d\t%s\t%s\n", off, ch, res.Outcome)
		}
		for _, m := range res.Matches {
			fmt.Fprintf(out, "%d\t%d\t%s\t%q\n", off, m.PatternID, m.Name, m.Text)
		}
		return nil
	})
	if err != nil {
		out.Flush()
		log.Fatalf("stream: %v", err)
	}
}

