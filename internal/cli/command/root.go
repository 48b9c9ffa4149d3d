package command

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/memkv/internal/cli/config"
	"github.com/yndnr/memkv/internal/cli/connection"
	"github.com/yndnr/memkv/internal/cli/output"
	"github.com/yndnr/memkv/internal/infra/buildinfo"
	"github.com/yndnr/memkv/internal/infra/tlsroots"
)

const metaSession = "session"

// App creates the CLI application.
func App() *cli.App {
	commands := keyCommands()
	commands = append(commands, adminCommands()...)
	commands = append(commands, ConfigCommand(), ReplCommand())

	return &cli.App{
		Name:                 "memkv-cli",
		Usage:                "memkv command-line client",
		UsageText:            "memkv-cli [global options] [command [arguments...]]",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		Commands:             commands,
		Before:               before,
		Action:               replAction,
		EnableBashCompletion: true,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"MEMKV_CLI_CONFIG"},
			Value:   config.DefaultPath(),
		},
		&cli.StringFlag{
			Name:        "server",
			Aliases:     []string{"s"},
			Usage:       "server target or saved connection name (host:port, tls://host:port, unix:///path)",
			EnvVars:     []string{"MEMKV_SERVER"},
			DefaultText: config.DefaultServer,
		},
		&cli.StringFlag{
			Name:        "admin",
			Usage:       "admin HTTP address",
			EnvVars:     []string{"MEMKV_ADMIN"},
			DefaultText: config.DefaultAdmin,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "output format: table, json, yaml",
			DefaultText: config.DefaultOutput,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Aliases:     []string{"t"},
			Usage:       "per-request timeout",
			DefaultText: config.DefaultTimeout.String(),
		},
		&cli.StringFlag{
			Name:  "tls-ca",
			Usage: "CA certificate file or directory for tls:// targets",
		},
		&cli.BoolFlag{
			Name:  "tls-insecure",
			Usage: "skip server certificate verification",
		},
	}
}

// Session holds the settings every command runs with: the CLI config file
// with global flags applied on top.
type Session struct {
	Config     *config.CLIConfig
	ConfigPath string

	Server  string
	Admin   string
	Timeout time.Duration
	Format  output.Format
	TLS     *tls.Config

	In  io.Reader
	Out io.Writer
}

func before(c *cli.Context) error {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	s := &Session{
		Config:     cfg,
		ConfigPath: path,
		Server:     cfg.Server,
		Admin:      cfg.Admin,
		Timeout:    cfg.Timeout,
		In:         c.App.Reader,
		Out:        c.App.Writer,
	}
	if c.IsSet("server") {
		s.Server = c.String("server")
	}
	s.Server = cfg.Resolve(s.Server)
	if c.IsSet("admin") {
		s.Admin = c.String("admin")
	}
	if c.IsSet("timeout") {
		s.Timeout = c.Duration("timeout")
	}
	if s.Timeout <= 0 {
		s.Timeout = connection.DefaultTimeout
	}

	format := cfg.Output
	if c.IsSet("output") {
		format = c.String("output")
	}
	if s.Format, err = output.ParseFormat(format); err != nil {
		return err
	}

	ca := cfg.TLSCA
	if c.IsSet("tls-ca") {
		ca = c.String("tls-ca")
	}
	if s.TLS, err = clientTLS(ca, c.Bool("tls-insecure")); err != nil {
		return err
	}

	c.App.Metadata[metaSession] = s
	return nil
}

// clientTLS returns nil when neither a CA nor insecure mode is requested,
// leaving tls:// targets on the system roots.
func clientTLS(ca string, insecure bool) (*tls.Config, error) {
	if ca == "" && !insecure {
		return nil, nil
	}
	pool := tlsroots.NewPool()
	if ca != "" {
		if err := pool.AddPath(ca); err != nil {
			return nil, fmt.Errorf("load tls ca %s: %w", ca, err)
		}
	}
	return pool.ClientConfig("", insecure), nil
}

// SessionFrom returns the session set up by the app's Before hook.
func SessionFrom(c *cli.Context) (*Session, error) {
	s, ok := c.App.Metadata[metaSession].(*Session)
	if !ok {
		return nil, errors.New("cli session not initialized")
	}
	return s, nil
}

func (s *Session) options() connection.Options {
	return connection.Options{Timeout: s.Timeout, TLSConfig: s.TLS}
}

func (s *Session) print(data any) error {
	return output.NewFormatter(s.Format).Format(s.Out, data)
}

// PrintError writes err the way redis-cli reports failures: server error
// replies as "(error) ...", anything else prefixed with "error: ".
func PrintError(w io.Writer, err error) {
	var reply *connection.ReplyError
	if errors.As(err, &reply) {
		fmt.Fprintf(w, "(error) %s\n", reply.Message)
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
