package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/memkv/internal/cli/config"
	"github.com/yndnr/memkv/internal/cli/output"
	"github.com/yndnr/memkv/internal/infra/confloader"
	serverconfig "github.com/yndnr/memkv/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the CLI config file and check server config files",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective CLI settings",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the CLI config file path",
				Action: configPath,
			},
			{
				Name:      "set",
				Usage:     "Change one CLI setting and save it",
				ArgsUsage: "KEY VALUE",
				Description: "KEY is one of server, admin, output, timeout, tls_ca, history_file.\n" +
					"An empty VALUE resets the key to its default.",
				Action: configSet,
			},
			{
				Name:  "connection",
				Usage: "Manage saved connection names",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List saved connections",
						Action: connectionList,
					},
					{
						Name:      "add",
						Usage:     "Save a target under a name",
						ArgsUsage: "NAME TARGET",
						Action:    connectionAdd,
					},
					{
						Name:      "remove",
						Aliases:   []string{"rm"},
						Usage:     "Forget a saved connection",
						ArgsUsage: "NAME",
						Action:    connectionRemove,
					},
				},
			},
			{
				Name:      "test",
				Usage:     "Validate a memkv-server config file",
				ArgsUsage: "FILE",
				Action:    configTest,
			},
		},
	}
}

type settingsView struct {
	ConfigFile  string `json:"config_file" yaml:"config_file"`
	Server      string `json:"server" yaml:"server"`
	Admin       string `json:"admin" yaml:"admin"`
	Output      string `json:"output" yaml:"output"`
	Timeout     string `json:"timeout" yaml:"timeout"`
	TLSCA       string `json:"tls_ca" yaml:"tls_ca"`
	HistoryFile string `json:"history_file" yaml:"history_file"`
	Connections int    `json:"connections" yaml:"connections"`
}

func configShow(c *cli.Context) error {
	s, err := SessionFrom(c)
	if err != nil {
		return err
	}
	return s.print(&settingsView{
		ConfigFile:  s.ConfigPath,
		Server:      s.Server,
		Admin:       s.Admin,
		Output:      string(s.Format),
		Timeout:     s.Timeout.String(),
		TLSCA:       s.Config.TLSCA,
		HistoryFile: s.Config.HistoryFile,
		Connections: len(s.Config.Connections),
	})
}

func configPath(c *cli.Context) error {
	s, err := SessionFrom(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.Out, s.ConfigPath)
	return err
}

func configSet(c *cli.Context) error {
	if err := checkArgs(c, 1, 2); err != nil {
		return err
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	return updateConfig(c, func(cfg *config.CLIConfig) error {
		def := config.Default()
		switch key {
		case "server":
			cfg.Server = orDefault(value, def.Server)
		case "admin":
			cfg.Admin = orDefault(value, def.Admin)
		case "output":
			if _, err := output.ParseFormat(value); err != nil {
				return err
			}
			cfg.Output = orDefault(value, def.Output)
		case "timeout":
			if value == "" {
				cfg.Timeout = def.Timeout
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("timeout: %w", err)
			}
			cfg.Timeout = d
		case "tls_ca":
			cfg.TLSCA = value
		case "history_file":
			cfg.HistoryFile = value
		default:
			return fmt.Errorf("unknown setting %q", key)
		}
		return nil
	})
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

type connectionRow struct {
	Name   string `json:"name" yaml:"name"`
	Target string `json:"target" yaml:"target"`
}

func connectionList(c *cli.Context) error {
	s, err := SessionFrom(c)
	if err != nil {
		return err
	}
	rows := make([]connectionRow, 0, len(s.Config.Connections))
	for _, name := range s.Config.ConnectionNames() {
		rows = append(rows, connectionRow{Name: name, Target: s.Config.Connections[name]})
	}
	return s.print(rows)
}

func connectionAdd(c *cli.Context) error {
	if err := checkArgs(c, 2, 2); err != nil {
		return err
	}
	name, target := c.Args().Get(0), c.Args().Get(1)
	return updateConfig(c, func(cfg *config.CLIConfig) error {
		cfg.Connections[name] = target
		return nil
	})
}

func connectionRemove(c *cli.Context) error {
	if err := checkArgs(c, 1, 1); err != nil {
		return err
	}
	name := c.Args().Get(0)
	return updateConfig(c, func(cfg *config.CLIConfig) error {
		if _, ok := cfg.Connections[name]; !ok {
			return fmt.Errorf("no saved connection %q", name)
		}
		delete(cfg.Connections, name)
		return nil
	})
}

// updateConfig applies fn to the file's content, not to the session, so
// flags given on this invocation are never persisted.
func updateConfig(c *cli.Context, fn func(*config.CLIConfig) error) error {
	s, err := SessionFrom(c)
	if err != nil {
		return err
	}
	cfg, err := config.Load(s.ConfigPath)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, s.ConfigPath); err != nil {
		return err
	}
	s.Config = cfg
	_, err = fmt.Fprintf(s.Out, "saved %s\n", s.ConfigPath)
	return err
}

// configTest loads FILE exactly as memkv-server would, environment
// included, and also opens any TLS key pair it names.
func configTest(c *cli.Context) error {
	if err := checkArgs(c, 1, 1); err != nil {
		return err
	}
	s, err := SessionFrom(c)
	if err != nil {
		return err
	}
	path := c.Args().First()

	cfg := serverconfig.Default()
	if err := confloader.NewLoader(confloader.WithConfigFile(path)).Load(cfg); err != nil {
		return err
	}
	if err := serverconfig.Verify(cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, _, err := serverconfig.ToRedisConfig(cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if _, err := fmt.Fprintf(s.Out, "%s: configuration ok\n", path); err != nil {
		return err
	}
	if s.Format != output.FormatTable {
		return nil
	}

	attrs := serverconfig.LogAttrs(cfg)
	t := &output.Table{Headers: []string{"KEY", "VALUE"}}
	for i := 0; i+1 < len(attrs); i += 2 {
		t.AddRow(fmt.Sprint(attrs[i]), fmt.Sprint(attrs[i+1]))
	}
	return t.Render(s.Out)
}
