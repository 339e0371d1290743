package engine

import (
	"path/filepath"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

type ApplicationConfig struct {
	// The application name used in logs.
	Name string
	// ProjectDir is what relative paths in Config are resolved against.
	ProjectDir string
	Config     *core.Config
}

// AssetRoot is the absolute asset directory of the project.
func (c *ApplicationConfig) AssetRoot() string {
	dir := c.Config.Assets.Directory
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.ProjectDir, dir)
}
