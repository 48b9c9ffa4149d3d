package repl

import (
	"sort"
	"strings"
)

// Completer matches command names by prefix, ignoring case.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer over commands.
func NewCompleter(commands ...string) *Completer {
	c := &Completer{}
	for _, cmd := range commands {
		c.commands = append(c.commands, strings.ToLower(cmd))
	}
	sort.Strings(c.commands)
	return c
}

// Complete returns the commands starting with prefix, sorted.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(prefix)
	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}

// Commands returns every known command.
func (c *Completer) Commands() []string {
	return append([]string(nil), c.commands...)
}
