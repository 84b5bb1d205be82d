package dag

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// BatchProcessor chạy nhiều văn bản độc lập qua cùng một automaton, mỗi văn
// bản một traversal riêng.
type BatchProcessor struct {
	a       *Automaton
	workers int
}

// BatchItem là kết quả của một văn bản trong batch.
type BatchItem struct {
	Index    int     `json:"index"`
	Matches  []Match `json:"matches"`
	NoMatch  int     `json:"no_match"`
	Consumed int     `json:"consumed"`
}

type BatchResult struct {
	ProcessedTexts int         `json:"processed_texts"`
	Items          []BatchItem `json:"items"`
	// Match.Name -> index các văn bản có match, tăng dần
	MatchedPatterns map[string][]int `json:"matched_patterns"`
	ProcessingTime  time.Duration    `json:"processing_time"`
}

// NewBatchProcessor: workers <= 0 dùng GOMAXPROCS.
func NewBatchProcessor(a *Automaton, workers int) *BatchProcessor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &BatchProcessor{a: a, workers: workers}
}

// ProcessBatch trả về kết quả theo đúng thứ tự texts. Context bị huỷ thì
// trả về lỗi của context và bỏ kết quả dở.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	start := time.Now()
	items := make([]BatchItem, len(texts))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < bp.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				items[i] = bp.processOne(ctx, i, texts[i])
			}
		}()
	}
feed:
	for i := range texts {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &BatchResult{
		ProcessedTexts:  len(texts),
		Items:           items,
		MatchedPatterns: make(map[string][]int),
	}
	for _, it := range items {
		seen := make(map[string]bool)
		for _, m := range it.Matches {
			if seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			res.MatchedPatterns[m.Name] = append(res.MatchedPatterns[m.Name], it.Index)
		}
	}
	res.ProcessingTime = time.Since(start)
	return res, nil
}

func (bp *BatchProcessor) processOne(ctx context.Context, idx int, text string) BatchItem {
	it := BatchItem{Index: idx, Matches: []Match{}}
	t := bp.a.NewTraversal()
	for _, r := range text {
		if ctx.Err() != nil {
			break
		}
		res := t.Step(r)
		it.Consumed++
		if res.Outcome == NoMatch {
			it.NoMatch++
		}
		it.Matches = append(it.Matches, res.Matches...)
	}
	if ctx.Err() == nil {
		it.Matches = append(it.Matches, t.Flush().Matches...)
	}
	return it
}
