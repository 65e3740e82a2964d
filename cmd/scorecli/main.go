// Command scorecli scores recorded creative signals offline.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	urfave "github.com/urfave/cli/v2"

	"github.com/ZanzyTHEbar/creative-scorer/internal/monitoring"
)

const (
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	rulesFlag = &urfave.StringFlag{
		Name:  "rules",
		Usage: "Path to a differentiation rule set YAML file (optional, defaults to the built-in rules)",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Format string
	Rules  string
	Logger *monitoring.Logger
}

func getConfig(c *urfave.Context) *appConfig {
	return c.App.Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.App {
	return &urfave.App{
		Name:                 "scorecli",
		Version:              fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Compiled:             time.Now(),
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Usage:                "Score, compare and inspect ad creatives from recorded signals",
		Flags: []urfave.Flag{
			debugFlag,
			formatFlag,
			rulesFlag,
		},
		Commands: []*urfave.Command{
			scoreCmd,
			compareCmd,
			rulesCmd,
			benchmarksCmd,
		},
		Before: func(c *urfave.Context) error {
			level := "warn"
			if c.Bool(debugFlag.Name) {
				level = "debug"
			}
			logger := monitoring.NewLoggerTo(c.App.ErrWriter, level)
			slog.SetDefault(logger.Logger)

			format := c.String(formatFlag.Name)
			switch format {
			case formatJSON:
			case formatYAML, "yml":
				format = formatYAML
			default:
				return fmt.Errorf("unsupported output format %q", format)
			}

			if c.App.Metadata == nil {
				c.App.Metadata = map[string]interface{}{}
			}
			c.App.Metadata[appConfigKey] = &appConfig{
				Format: format,
				Rules:  c.String(rulesFlag.Name),
				Logger: logger,
			}
			return nil
		},
	}
}
