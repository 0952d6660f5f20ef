package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"capture-assistant/pkg/capture"
	"capture-assistant/pkg/config"
)

func newHeadlessCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "headless",
		Short: "Run the frame loop without a window, reading commands from stdin",
		Long: `Runs a paced frame loop and reads capture commands from stdin and, when
trigger.port is configured, from a serial port:

  cap N     capture the next N frames
  start     open a capture that spans frames until "end"
  end       close the capture opened by "start"
  trigger   let RenderDoc capture the next presented frame
  die       exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*cfgFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runHeadless(ctx, cfg, logger, cmd.InOrStdin(), nil)
		},
	}
}

// runHeadless runs the frame loop until die, a stdin read error or ctx ends.
// EOF on stdin only stops reading; queued captures still run.
// render is the host frame; nil renders nothing.
func runHeadless(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdin io.Reader, render func()) error {
	var scheduler *capture.Scheduler
	api, err := loadCaptureAPI(cfg.RenderDoc.Library)
	if err != nil {
		logger.Warn("RenderDoc not available, captures disabled", "err", err)
		scheduler = capture.NewScheduler(nil)
	} else {
		defer api.Close()
		scheduler = capture.NewScheduler(api)
	}
	scheduler.Request(cfg.Headless.InitialCaptures)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handle := func(cmd capture.Command) bool {
		quit, err := capture.Dispatch(scheduler, cmd)
		if err != nil {
			logger.Warn("command failed", "command", cmd.Verb, "err", err)
		}
		if quit {
			cancel()
			return false
		}
		return true
	}

	go func() {
		err := capture.ReadCommands(ctx, stdin, handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reading stdin", "err", err)
			cancel()
		}
	}()

	if cfg.Trigger.Port != "" {
		port, err := capture.OpenSerial(capture.SerialConfig{
			Port:     cfg.Trigger.Port,
			BaudRate: cfg.Trigger.BaudRate,
			DataBits: cfg.Trigger.DataBits,
			StopBits: cfg.Trigger.StopBits,
			Parity:   cfg.Trigger.Parity,
		})
		if err != nil {
			return err
		}
		defer port.Close()
		logger.Info("listening for trigger commands", "port", cfg.Trigger.Port)
		go func() {
			if err := capture.ReadCommands(ctx, port, handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("reading trigger port", "port", cfg.Trigger.Port, "err", err)
			}
		}()
	}

	err = scheduler.Run(ctx, cfg.Headless.FPS, render)
	logger.Info("Exit.")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
