package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/memkv/internal/cli/connection"
)

// ErrUsage reports a command called with the wrong arguments.
var ErrUsage = errors.New("usage")

func keyCommands() []*cli.Command {
	return []*cli.Command{
		serverCommand("ping", "Check that the server answers", "[MESSAGE]", 0, 1),
		serverCommand("echo", "Echo a message back", "MESSAGE", 1, 1),
		serverCommand("get", "Get the value of a key", "KEY", 1, 1),
		setCommand(),
		serverCommand("del", "Delete a key", "KEY", 1, 1),
		serverCommand("exists", "Check whether a key exists", "KEY", 1, 1),
		serverCommand("expire", "Set a key's time to live in seconds", "KEY SECONDS", 2, 2),
		serverCommand("persist", "Remove a key's time to live", "KEY", 1, 1),
		serverCommand("ttl", "Show a key's remaining time to live in seconds", "KEY", 1, 1),
		serverCommand("keys", "List every live key", "", 0, 0),
		serverCommand("dbsize", "Count live keys", "", 0, 0),
		serverCommand("flushdb", "Delete every key", "", 0, 0),
		rawCommand(),
	}
}

// serverCommand sends its name and arguments as one request. maxArgs < 0
// allows any number of arguments.
func serverCommand(name, usage, argsUsage string, minArgs, maxArgs int) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: argsUsage,
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, minArgs, maxArgs); err != nil {
				return err
			}
			return execute(c, append([]string{strings.ToUpper(name)}, c.Args().Slice()...))
		},
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set a key, optionally expiring after --ex seconds",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "ex",
				Usage: "expire after this many seconds",
			},
		},
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 2, 2); err != nil {
				return err
			}
			args := []string{"SET", c.Args().Get(0), c.Args().Get(1)}
			if c.IsSet("ex") {
				ex := c.Int64("ex")
				if ex < 0 {
					return fmt.Errorf("%w: set --ex must not be negative", ErrUsage)
				}
				args = append(args, "EX", strconv.FormatInt(ex, 10))
			}
			return execute(c, args)
		},
	}
}

func rawCommand() *cli.Command {
	return &cli.Command{
		Name:      "raw",
		Usage:     "Send an arbitrary command",
		ArgsUsage: "COMMAND [ARG...]",
		Action: func(c *cli.Context) error {
			if err := checkArgs(c, 1, -1); err != nil {
				return err
			}
			return execute(c, c.Args().Slice())
		},
	}
}

func checkArgs(c *cli.Context, minArgs, maxArgs int) error {
	n := c.NArg()
	if n < minArgs || (maxArgs >= 0 && n > maxArgs) {
		return fmt.Errorf("%w: %s %s", ErrUsage, c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

// execute sends args on a fresh connection and prints the reply. Error
// replies are returned rather than printed.
func execute(c *cli.Context, args []string) error {
	s, err := SessionFrom(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, s.Timeout)
	defer cancel()

	client, err := connection.Dial(ctx, s.Server, s.options())
	if err != nil {
		return err
	}
	defer client.Close()

	reply, err := client.Do(ctx, args...)
	if err != nil {
		return err
	}
	if err := connection.ReplyErr(reply); err != nil {
		return err
	}
	return s.print(reply)
}
