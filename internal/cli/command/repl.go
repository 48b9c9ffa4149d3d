package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/memkv/internal/cli/connection"
	"github.com/yndnr/memkv/internal/cli/repl"
)

// replCommands are offered by help and completion.
var replCommands = []string{
	"ping", "echo", "get", "set", "del", "exists", "expire", "persist",
	"ttl", "keys", "dbsize", "flushdb", "quit",
	"connect", "disconnect", "exit", "help", "history",
}

// ReplCommand returns the repl command. Running memkv-cli without a
// command does the same.
func ReplCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Start an interactive session",
		Action: replAction,
	}
}

func replAction(c *cli.Context) error {
	if c.NArg() > 0 {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, c.Args().First())
	}
	s, err := SessionFrom(c)
	if err != nil {
		return err
	}

	sh := &shell{session: s, mgr: connection.NewManager(s.options())}
	defer sh.mgr.Disconnect()

	if err := sh.connect(c.Context, s.Server); err != nil {
		fmt.Fprintf(s.Out, "could not connect to %s: %v\n", s.Server, err)
	}

	historyFile := s.Config.HistoryFile
	if historyFile == "" {
		historyFile = repl.DefaultHistoryPath()
	}
	history := repl.NewHistory(historyFile, repl.DefaultHistorySize)
	if err := history.Load(); err != nil {
		fmt.Fprintf(s.Out, "warning: %v\n", err)
	}

	r := repl.New(repl.Config{
		Input:     s.In,
		Output:    s.Out,
		Prompt:    sh.prompt,
		Execute:   sh.execute,
		History:   history,
		Completer: repl.NewCompleter(replCommands...),
	})
	runErr := r.Run(c.Context)

	if err := history.Save(); err != nil {
		fmt.Fprintf(s.Out, "warning: %v\n", err)
	}
	return runErr
}

// shell executes REPL lines against the manager's current connection.
type shell struct {
	session *Session
	mgr     *connection.Manager
}

func (sh *shell) prompt() string {
	if server := sh.mgr.Server(); server != "" {
		return "memkv " + server + "> "
	}
	return "memkv (not connected)> "
}

func (sh *shell) connect(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, sh.session.Timeout)
	defer cancel()
	return sh.mgr.Connect(ctx, sh.session.Config.Resolve(target))
}

func (sh *shell) execute(ctx context.Context, args []string) error {
	out := sh.session.Out

	switch strings.ToLower(args[0]) {
	case "connect":
		target := sh.session.Server
		if len(args) > 1 {
			target = args[1]
		}
		if err := sh.connect(ctx, target); err != nil {
			return err
		}
		fmt.Fprintf(out, "connected to %s\n", sh.mgr.Server())
		return nil

	case "disconnect":
		if err := sh.mgr.Disconnect(); err != nil {
			return err
		}
		fmt.Fprintln(out, "disconnected")
		return nil

	case "quit":
		if sh.mgr.IsConnected() {
			_ = sh.send(ctx, args)
		}
		return repl.ErrExit
	}

	return sh.send(ctx, args)
}

// send runs one command and prints the reply, error replies included.
func (sh *shell) send(ctx context.Context, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, sh.session.Timeout)
	defer cancel()

	client, err := sh.mgr.Client(ctx)
	if err != nil {
		return err
	}
	reply, err := client.Do(ctx, args...)
	if err != nil {
		return err
	}
	return sh.session.print(reply)
}
