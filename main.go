/*
Headless host for the anima asset pipeline: import, list and
hot-load the assets of a project.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/anima-assets/testbed"
)

func main() {
	if err := testbed.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
