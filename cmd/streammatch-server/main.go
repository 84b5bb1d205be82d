package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/namsral/flag"

	_ "github.com/lib/pq"

	ir "github.com/PhucNguyen204/streammatch/automaton"
	srv "github.com/PhucNguyen204/streammatch/internal/server"
)

func main() {
	var (
		addr         string
		dsn          string
		patternsPath string
		patternsGlob string
		policy       string
		fold         bool
		maxRunes     int
	)
	// namsral/flag cũng đọc biến môi trường cùng tên viết hoa, vd PATTERNS_PATH
	flag.StringVar(&addr, "addr", ":8080", "listen address")
	flag.StringVar(&dsn, "db_dsn", "", "postgres DSN; empty keeps patterns in memory")
	flag.StringVar(&patternsPath, "patterns_path", "", "directory of YAML pattern sets")
	flag.StringVar(&patternsGlob, "patterns_glob", "", "only load files whose relative path matches this glob")
	flag.StringVar(&policy, "match_policy", "shortest", "shortest or continue")
	flag.BoolVar(&fold, "case_insensitive", false, "fold case for literals and fragments")
	flag.IntVar(&maxRunes, "max_fragment_runes", 0, "cap on runes a fragment may consume (0 = unlimited)")
	flag.Parse()

	cfg := ir.DefaultConfig().WithCaseInsensitive(fold).WithMaxFragmentRunes(maxRunes)
	var p ir.MatchPolicy
	if err := p.UnmarshalText([]byte(policy)); err != nil {
		log.Fatalf("match_policy: %v", err)
	}
	cfg = cfg.WithPolicy(p)

	var db *sql.DB
	if dsn != "" {
		var err error
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		if err := db.Ping(); err != nil {
			log.Fatalf("ping db: %v", err)
		}
	}

	server, err := srv.NewAppServer(db, nil, cfg)
	if err != nil {
		log.Fatalf("init automaton: %v", err)
	}
	ctx := context.Background()
	if err := server.InitSchema(ctx); err != nil {
		log.Fatalf("init schema: %v", err)
	}
	switch {
	case patternsPath != "":
		if err := server.LoadPatternsFromDir(ctx, patternsPath, patternsGlob); err != nil {
			log.Printf("failed to load patterns from %s: %v", patternsPath, err)
		}
	case db != nil:
		if err := server.LoadPatternsFromDB(ctx); err != nil {
			log.Printf("failed to load patterns from database: %v", err)
		}
	}

	log.Printf("streammatch server listening on %s", addr)
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
