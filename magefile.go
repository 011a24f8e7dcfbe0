//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles both executables into ./bin
func Build() error {
	mg.Deps(BuildProcessor, BuildInspect)
	fmt.Println("Compilation finished")
	return nil
}

func BuildProcessor() error {
	fmt.Println("Building processor executable...")
	return goCommand("build", "-o", "./bin/processor", "./processor")
}

func BuildInspect() error {
	fmt.Println("Building inspect executable...")
	return goCommand("build", "-o", "./bin/inspect", "./inspect")
}

// Test runs every package test. The HDF5 sink needs libhdf5 through cgo.
func Test() error {
	fmt.Println("Running tests...")
	return goCommand("test", "./...")
}

func goCommand(args ...string) error {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
