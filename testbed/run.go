package testbed

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load every asset and keep them hot-reloaded until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runHost,
}

func runHost(cmd *cobra.Command, args []string) error {
	app, err := loadApplicationConfig()
	if err != nil {
		return err
	}

	tg := NewTestGame(app)
	e, err := engine.New(tg.Game)
	if err != nil {
		return err
	}
	defer func() { _ = e.Shutdown() }()

	if err := e.Initialize(); err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	return e.Run(ctx)
}
