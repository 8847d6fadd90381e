// Package commands interprets slash commands typed into chat.
package commands

import (
	"fmt"
	"sort"
	"strings"
)

const Prefix = "/"

// Caller identifies the player who typed the command.
type Caller struct {
	ID       int
	Nickname string
	X, Y     float64
}

// Env is what a command may do in response. The world implements it per call.
type Env interface {
	Reply(text string)
	ReplyUnknown()
	Online() []Caller
	MaxPlayers() int
}

type Handler func(env Env, caller Caller, args []string)

type command struct {
	help string
	run  Handler
}

type Interpreter struct {
	commands map[string]command
}

// New returns an interpreter with the built-in commands registered.
func New() *Interpreter {
	i := &Interpreter{commands: map[string]command{}}
	i.Register("help", "list commands", i.help)
	i.Register("online", "list online players", online)
	i.Register("whoami", "show your id and nickname", whoami)
	i.Register("pos", "show your position", pos)
	return i
}

func (i *Interpreter) Register(name, help string, h Handler) {
	i.commands[strings.ToLower(name)] = command{help: help, run: h}
}

// Interpret reports whether text was consumed as a command. Text without the prefix is never
// consumed; an unrecognized command is consumed and answered with the localized notice.
func (i *Interpreter) Interpret(env Env, caller Caller, text string) bool {
	if !strings.HasPrefix(text, Prefix) {
		return false
	}
	fields := strings.Fields(strings.TrimPrefix(text, Prefix))
	if len(fields) == 0 {
		env.ReplyUnknown()
		return true
	}
	c, ok := i.commands[strings.ToLower(fields[0])]
	if !ok {
		env.ReplyUnknown()
		return true
	}
	c.run(env, caller, fields[1:])
	return true
}

func (i *Interpreter) help(env Env, _ Caller, _ []string) {
	names := make([]string, 0, len(i.commands))
	for n := range i.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, Prefix+n+" - "+i.commands[n].help)
	}
	env.Reply(strings.Join(parts, "; "))
}

func online(env Env, _ Caller, _ []string) {
	players := env.Online()
	sort.Slice(players, func(a, b int) bool { return players[a].ID < players[b].ID })
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Nickname)
	}
	env.Reply(fmt.Sprintf("Online %d/%d: %s", len(players), env.MaxPlayers(), strings.Join(names, ", ")))
}

func whoami(env Env, c Caller, _ []string) {
	env.Reply(fmt.Sprintf("You are %s (#%d)", c.Nickname, c.ID))
}

func pos(env Env, c Caller, _ []string) {
	env.Reply(fmt.Sprintf("Position: %.0f, %.0f", c.X, c.Y))
}
