// Package testbed is a headless host that exercises the asset pipeline from
// the command line.
package testbed

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

var (
	projectDir string
	cfgFile    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "anima-assets",
	Short: "Anima asset pipeline testbed",
	Long: `Registers, lists and hot-loads the assets of an anima project.

The project directory holds anima.toml; assets live under assets.directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. It is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", ".", "project directory")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <project>/anima.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadApplicationConfig reads the project config and applies flag overrides.
func loadApplicationConfig() (*engine.ApplicationConfig, error) {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, err
	}
	path := cfgFile
	if path == "" {
		path = filepath.Join(dir, core.DefaultConfigFile)
	}
	cfg, err := core.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return &engine.ApplicationConfig{
		Name:       filepath.Base(dir),
		ProjectDir: dir,
		Config:     cfg,
	}, nil
}
