//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Build compiles the API server and tools into ./bin.
func Build() error {
	mg.Deps(Tidy)
	if err := sh.RunV("go", "build", "-o", "bin/api", "./cmd/api"); err != nil {
		return err
	}
	if err := sh.RunV("go", "build", "-o", "bin/createtable", "./cmd/tools/createtable"); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", "bin/mockwebhook", "./cmd/tools/mockwebhook")
}

// Test runs the full test suite.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Tidy syncs go.mod and go.sum.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

// Run starts the API server.
func Run() error {
	mg.Deps(Build)
	fmt.Println("starting api on $APP_ADDR")
	return sh.RunV("./bin/api")
}
