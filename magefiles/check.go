//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Check mg.Namespace

// Runs the unit tests with the race detector.
func (Check) Test() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withStream())
	return err
}

// Runs go vet over every package.
func (Check) Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}

// Runs vet and then the tests.
func (Check) All() {
	mg.SerialDeps(Check.Vet, Check.Test)
}
