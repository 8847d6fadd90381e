package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	persistlog "privatestarving.io/internal/persistence/log"
	"privatestarving.io/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "journal":
			journalCmd(os.Args[2:])
			return
		case "info":
			infoCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin <db|journal|info> [flags]")
	os.Exit(2)
}

// journalCmd scans the compressed audit journal directly, for when the index is disabled or lagging.
func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dir := fs.String("journal", "./data/journal", "journal directory")
	action := fs.String("action", "", "action filter (JOIN, CRAFT_START, ...)")
	player := fs.Uint("player", 0, "player id filter")
	_ = fs.Parse(args)

	entries, err := persistlog.ReadAudit(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, e := range filterAudit(entries, strings.ToUpper(strings.TrimSpace(*action)), uint32(*player)) {
		_ = enc.Encode(e)
	}
}

func filterAudit(entries []world.AuditEntry, action string, player uint32) []world.AuditEntry {
	var out []world.AuditEntry
	for _, e := range entries {
		if action != "" && e.Action != action {
			continue
		}
		if player != 0 && e.Player != player {
			continue
		}
		out = append(out, e)
	}
	return out
}
