package server

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const patternsSchema = `CREATE TABLE IF NOT EXISTS patterns (
	position   INT PRIMARY KEY,
	pattern_id BIGINT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	kind       TEXT NOT NULL,
	text       TEXT NOT NULL
)`

// InitSchema tạo bảng patterns rồi chạy thêm migration từ MIGRATIONS_PATH nếu có.
func (s *AppServer) InitSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, patternsSchema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	mp := os.Getenv("MIGRATIONS_PATH")
	if mp == "" {
		return nil
	}
	if _, err := os.Stat(mp); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return s.RunMigrations(ctx, mp)
}

// RunMigrations executes all SQL files in the given directory in lexicographic order.
// Each file may contain multiple statements separated by ';'.
func (s *AppServer) RunMigrations(ctx context.Context, dir string) error {
	var entries []string
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil { return err }
		if d.IsDir() { return nil }
		if strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			entries = append(entries, path)
		}
		return nil
	}
	if err := filepath.WalkDir(dir, walkFn); err != nil { return err }
	sort.Strings(entries)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for _, p := range entries {
		b, err := os.ReadFile(p)
		if err != nil { return fmt.Errorf("read migration %s: %w", p, err) }
		for _, c := range strings.Split(string(b), ";") {
			stmt := strings.TrimSpace(c)
			if stmt == "" { continue }
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec migration %s: %w", p, err)
			}
		}
	}
	return nil
}
