//go:build mage

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// All runs all tests (unit and integration).
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs only unit tests, excluding the tests/ directory.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if pkg != "" && !strings.Contains(pkg, "/tests/") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	return sh.RunV(binGo, append([]string{"test", "-race"}, unitPkgs...)...)
}

// Integration builds first, then runs the CLI integration tests.
func (Test) Integration() error {
	mg.Deps(Build)
	return sh.RunV(binGo, "test", "./tests/...")
}

// Postgres runs the Postgres store tests. DOIREG_TEST_POSTGRES_URL must
// point at a scratch database.
func (Test) Postgres() error {
	if os.Getenv("DOIREG_TEST_POSTGRES_URL") == "" {
		return errors.New("DOIREG_TEST_POSTGRES_URL is not set")
	}
	return sh.RunV(binGo, "test", "-v", "-count=1", "./internal/postgres/...")
}
