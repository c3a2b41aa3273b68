//go:build mage

// Package main provides build targets for doireg using Mage.
//
// Usage:
//
//	mage build             Compile the doireg binary to bin/
//	mage test:all          Run all tests (unit + integration)
//	mage test:unit         Run only unit tests
//	mage test:integration  Build, then run the CLI integration tests
//	mage test:postgres     Run the Postgres store tests against $DOIREG_TEST_POSTGRES_URL
//	mage lint              Run golangci-lint
//	mage clean             Remove build artifacts
//	mage install           Install doireg to GOPATH/bin
//	mage stats             Print Go line counts per package
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "doireg"
	binaryDir  = "bin"
	cmdDir     = "./cmd/doireg"
	versionVar = "github.com/mesh-intelligence/doireg/internal/cli.Version"
)

// Build compiles the doireg binary to bin/. The version comes from
// git describe when available.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if v := gitVersion(); v != "" {
		args = append(args, "-ldflags", "-X "+versionVar+"="+v)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), filepath.Join(binaryDir, binaryName))
}

func gitVersion() string {
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSpace(out), "v")
}
