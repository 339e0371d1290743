//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the headless testbed against a project directory (default: current directory).
func (Run) Testbed(project string) error {
	if project == "" {
		project = "."
	}
	fmt.Println("Run testbed...")
	if _, err := executeCmd("go", withArgs("run", "main.go", "run", "--project", project), withStream()); err != nil {
		return err
	}
	return nil
}

// Imports every recognized file of a project into its asset registry.
func (Run) Import(project string) error {
	if project == "" {
		project = "."
	}
	if _, err := executeCmd("go", withArgs("run", "main.go", "import", "--project", project), withStream()); err != nil {
		return err
	}
	return nil
}
