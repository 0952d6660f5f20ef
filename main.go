package main

import (
	"embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"capture-assistant/pkg/config"
	"capture-assistant/pkg/renderdoc"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "capture-assistant",
		Short: "Trigger RenderDoc frame captures",
		Long: `capture-assistant loads the RenderDoc in-application API when the
process runs under RenderDoc and triggers frame captures from a control
panel, stdin or a serial trigger port.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cfgFile)
			if err != nil {
				return err
			}
			return runWindow(cfg, logger)
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")

	root.AddCommand(newHeadlessCmd(&cfgFile))
	return root
}

// setup loads the config and installs the stderr logger for every package.
func setup(cfgFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	renderdoc.SetLogger(logger)
	return cfg, logger, nil
}

func runWindow(cfg *config.Config, logger *slog.Logger) error {
	// Create an instance of the app structure
	app := NewApp(cfg, logger)

	return wails.Run(&options.App{
		Title:  "Capture Assistant",
		Width:  520,
		Height: 420,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
}
