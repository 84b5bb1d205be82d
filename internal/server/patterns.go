package server

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"
	"golang.org/x/xerrors"

	ir "github.com/PhucNguyen204/streammatch/automaton"
	"github.com/PhucNguyen204/streammatch/automaton/dag"
	"github.com/PhucNguyen204/streammatch/internal/patterns"
	"github.com/PhucNguyen204/streammatch/pkg/patternset"
)

var (
	ErrNoDatabase         = xerrors.New("server: no database configured")
	ErrDuplicatePatternID = xerrors.New("server: duplicate pattern id")
)

// LoadPatternsFromDir nạp các file YAML dưới dir (lọc theo glob include nếu có),
// build automaton mới và lưu vào DB nếu có.
func (s *AppServer) LoadPatternsFromDir(ctx context.Context, dir, include string) error {
	sets, err := patterns.LoadDir(dir, include)
	if err != nil { return err }
	ps := patternset.Merge(sets...)
	a, err := dag.New(ps, s.config())
	if err != nil { return fmt.Errorf("build automaton: %w", err) }
	if s.db != nil {
		if err := s.ReplacePatterns(ctx, ps); err != nil { return err }
	}
	s.swapAutomaton(a)
	log.Printf("loaded %d pattern sets from %s: patterns=%d nodes=%d", len(sets), dir, a.PatternCount(), a.NodeCount())
	return nil
}

// LoadPatternsFromDB build lại automaton từ bảng patterns.
func (s *AppServer) LoadPatternsFromDB(ctx context.Context) error {
	ps, err := s.ListPatterns(ctx)
	if err != nil { return err }
	a, err := dag.New(ps, s.config())
	if err != nil { return fmt.Errorf("build automaton: %w", err) }
	s.swapAutomaton(a)
	log.Printf("loaded %d patterns from database", len(ps))
	return nil
}

func (s *AppServer) ListPatterns(ctx context.Context) ([]ir.Pattern, error) {
	if s.db == nil {
		return nil, ErrNoDatabase
	}
	rows, err := s.db.QueryContext(ctx, `SELECT position, pattern_id, name, kind, text FROM patterns ORDER BY position`)
	if err != nil { return nil, err }
	defer rows.Close()

	var out []ir.Pattern
	for rows.Next() {
		var (
			pos  int
			id   int64
			p    ir.Pattern
			kind string
		)
		if err := rows.Scan(&pos, &id, &p.Name, &kind, &p.Text); err != nil { return nil, err }
		k, err := ir.ParsePatternKind(kind)
		if err != nil { return nil, fmt.Errorf("pattern at position %d: %w", pos, err) }
		p.ID = ir.PatternId(id)
		p.Kind = k
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplacePatterns thay toàn bộ bảng patterns trong một transaction.
func (s *AppServer) ReplacePatterns(ctx context.Context, ps []ir.Pattern) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil { return err }
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM patterns`); err != nil { return err }
	for i, p := range ps {
		_, err := tx.ExecContext(ctx, `INSERT INTO patterns(position, pattern_id, name, kind, text) VALUES ($1,$2,$3,$4,$5)`,
			i, int64(p.ID), p.Name, p.Kind.String(), p.Text)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				return fmt.Errorf("%w: %d", ErrDuplicatePatternID, p.ID)
			}
			return err
		}
	}
	return tx.Commit()
}
