package testbed

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine"
)

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Register every recognized file under dir (default: the asset root)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	app, err := loadApplicationConfig()
	if err != nil {
		return err
	}
	e, err := engine.New(&engine.Game{ApplicationConfig: app})
	if err != nil {
		return err
	}
	defer func() { _ = e.Shutdown() }()

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	n, err := e.AssetManager().ImportDirectory(dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d new assets (%d registered)\n", n, e.AssetManager().Registry().Len())
	return nil
}
