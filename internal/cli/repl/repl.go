package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Executor runs one line that the REPL does not handle itself.
type Executor func(ctx context.Context, args []string) error

// Config configures a REPL.
type Config struct {
	Input  io.Reader
	Output io.Writer

	// Prompt is called before every line.
	Prompt func() string

	Execute   Executor
	History   *History
	Completer *Completer
}

// REPL is the read-eval-print loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    func() string
	execute   Executor
	history   *History
	completer *Completer
}

// New creates a REPL. A nil History keeps history in memory only; a nil
// Completer knows no commands.
func New(cfg Config) *REPL {
	r := &REPL{
		input:     cfg.Input,
		output:    cfg.Output,
		prompt:    cfg.Prompt,
		execute:   cfg.Execute,
		history:   cfg.History,
		completer: cfg.Completer,
	}
	if r.prompt == nil {
		r.prompt = func() string { return "memkv> " }
	}
	if r.history == nil {
		r.history = NewHistory("", 0)
	}
	if r.completer == nil {
		r.completer = NewCompleter()
	}
	return r
}

// Run reads lines until EOF, exit or ctx cancellation. Executor errors
// are printed and do not stop the loop.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt())

		if !scanner.Scan() {
			fmt.Fprintln(r.output)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.history.Add(line)

		args, err := SplitLine(line)
		if err != nil {
			fmt.Fprintf(r.output, "(error) %v\n", err)
			continue
		}

		switch strings.ToLower(args[0]) {
		case "exit":
			return nil
		case "help":
			r.help(args[1:])
			continue
		case "history":
			for i, e := range r.history.Entries() {
				fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
			}
			continue
		}

		if r.execute == nil {
			continue
		}
		if err := r.execute(ctx, args); err != nil {
			if errors.Is(err, ErrExit) {
				return nil
			}
			fmt.Fprintf(r.output, "(error) %v\n", err)
		}
	}
}

// ErrExit may be returned by an Executor to leave the loop.
var ErrExit = errors.New("repl: exit")

func (r *REPL) help(args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	matches := r.completer.Complete(prefix)
	if len(matches) == 0 {
		fmt.Fprintf(r.output, "no command matches %q\n", prefix)
		return
	}
	fmt.Fprintln(r.output, strings.Join(matches, " "))
}
