package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"privatestarving.io/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dbPath := fs.String("db", "./data/index.db", "sqlite index path")
	limit := fs.Int("limit", 20, "result limit")
	player := fs.Uint("player", 0, "player id (player query)")
	action := fs.String("action", "", "action filter (audits query)")
	_ = fs.Parse(args)

	q := "sessions"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	idx, err := indexdb.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx := context.Background()
	var rows any
	switch q {
	case "sessions":
		rows, err = idx.RecentSessions(ctx, *limit)
	case "audits":
		rows, err = idx.RecentAudits(ctx, strings.ToUpper(strings.TrimSpace(*action)), *limit)
	case "player":
		if *player == 0 {
			fmt.Fprintln(os.Stderr, "missing -player")
			os.Exit(2)
		}
		rows, err = idx.PlayerAudits(ctx, uint32(*player), *limit)
	case "catalogs":
		rows, err = idx.Catalogs(ctx)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(sessions|audits|player|catalogs)")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printRows(rows)
}

// printRows writes one JSON object per line.
func printRows(rows any) {
	b, err := json.Marshal(rows)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		fmt.Println(string(b))
		return
	}
	for _, it := range items {
		fmt.Println(string(it))
	}
}
