//go:build mage

// Package main provides build targets for the ledger project using Mage.
//
// Usage:
//
//	mage build   Compile ledger binary to bin/
//	mage test    Run all tests with the race detector
//	mage cover   Write bin/cover.out and print per-function coverage
//	mage smoke   Build ledger and run a CRUD round trip in a temp dir
//	mage lint    Run golangci-lint
//	mage clean   Remove build artifacts
//	mage stats   Print Go lines per package
package main

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo     = "go"
	binaryDir = "bin"
	cmdDir    = "./cmd/ledger"
)

var ledgerBin = filepath.Join(binaryDir, "ledger")

// Build compiles the ledger binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-o", ledgerBin, cmdDir)
}

// Test runs all tests with the race detector; the builder and store tests
// hit the shared query state from several goroutines.
func Test() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Cover writes a coverage profile to bin/cover.out and prints it per function.
func Cover() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	profile := filepath.Join(binaryDir, "cover.out")
	if err := sh.RunV(binGo, "test", "-coverprofile="+profile, "./internal/...", "./pkg/..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+profile)
}

// Smoke builds ledger and runs init, insert, find, count, and delete against
// a throwaway config and data directory.
func Smoke() error {
	mg.Deps(Build)
	dir, err := os.MkdirTemp("", "ledger-smoke-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	bin, err := filepath.Abs(ledgerBin)
	if err != nil {
		return err
	}
	ledger := func(args ...string) (string, error) {
		base := []string{"--config-dir", filepath.Join(dir, ".ledger"), "--data-dir", filepath.Join(dir, "data")}
		return sh.Output(bin, append(base, args...)...)
	}
	steps := [][]string{
		{"init", "--entity", "User"},
		{"insert", "User", `{"name":"Sasha","email":"sasha@gmail.com"}`},
		{"insert", "User", `{"name":"Yaniv","email":"yaniv@gmail.com"}`},
		{"find", "User", "2"},
		{"delete", "User", "1"},
	}
	for _, args := range steps {
		if _, err := ledger(args...); err != nil {
			return fmt.Errorf("ledger %s: %w", strings.Join(args, " "), err)
		}
	}
	n, err := ledger("count", "User")
	if err != nil {
		return err
	}
	if n != "1" {
		return fmt.Errorf("count after delete = %q, want 1", n)
	}
	fmt.Println("smoke: ok")
	return nil
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}

// Stats prints Go lines per package directory, split into production and
// test code.
func Stats() error {
	type counts struct{ prod, test int }
	perPkg := make(map[string]*counts)

	for _, root := range []string{"cmd", "internal", "pkg"} {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
				return err
			}
			n, err := countLines(path)
			if err != nil {
				return err
			}
			dir := filepath.Dir(path)
			if perPkg[dir] == nil {
				perPkg[dir] = &counts{}
			}
			if strings.HasSuffix(path, "_test.go") {
				perPkg[dir].test += n
			} else {
				perPkg[dir].prod += n
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	var total counts
	fmt.Printf("%-22s %8s %8s\n", "package", "prod", "test")
	for _, dir := range slices.Sorted(maps.Keys(perPkg)) {
		c := perPkg[dir]
		fmt.Printf("%-22s %8d %8d\n", dir, c.prod, c.test)
		total.prod += c.prod
		total.test += c.test
	}
	fmt.Printf("%-22s %8d %8d\n", "total", total.prod, total.test)
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
