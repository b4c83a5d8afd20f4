//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	"github.com/luxury-yacht/driftcheck/mage"
)

var cfg = mage.NewBuildConfig()

// ===============================
// Debugging Stuff
// ===============================

// Displays the current build configuration
func ShowConfig() {
	mage.PrettyPrint(cfg)
}

// ===============================
// Mage Aliases
// ===============================

var Aliases = map[string]interface{}{
	"clean":               Clean.Build,
	"clean-all":           Clean.All,
	"clean-go-cache":      Clean.GoCache,
	"deps":                Deps.Go,
	"go-mod-update-check": QC.GoModUpdateCheck,
	"go-mod-update":       QC.GoModUpdate,
	"vet":                 QC.Vet,
	"trivy":               QC.Trivy,
	"test":                Test.Backend,
	"test-cov":            Test.BackendCoverage,
}

// ===============================
// Ensure Dependencies
// ===============================

func isStaticcheckInstalled() error {
	if _, err := exec.LookPath("staticcheck"); err != nil {
		return fmt.Errorf("staticcheck is not installed.")
	}
	return nil
}

func isTrivyInstalled() error {
	if _, err := exec.LookPath("trivy"); err != nil {
		return fmt.Errorf("trivy is not installed.")
	}
	return nil
}

// ===============================
// Dependency Management Tasks
// ===============================

type Deps mg.Namespace

// Installs Go dependencies
func (Deps) Go() error {
	fmt.Println("Installing go dependencies...")
	return sh.RunV("go", "mod", "tidy")
}

// ===============================
// Cleanup Tasks
// ===============================

type Clean mg.Namespace

// Cleans all build artifacts and caches
func (Clean) All() {
	mg.SerialDeps(Clean.Build, Clean.GoCache)
}

// Cleans build artifacts
func (Clean) Build() error {
	fmt.Println("\n🧹 Cleaning build directory...")
	os.RemoveAll(cfg.BuildDir)
	return nil
}

// Cleans the Go cache
func (Clean) GoCache() error {
	goCacheDir, _ := exec.Command("go", "env", "GOCACHE").Output()
	fmt.Println("\n🧹 Cleaning Go cache...")
	os.RemoveAll(string(goCacheDir))
	return nil
}

// ===============================
// Quality Checks
// ===============================

type QC mg.Namespace

// Checks for Go module updates
func (QC) GoModUpdateCheck() error {
	fmt.Println("\n🔎 Checking for outdated Go modules...")
	return sh.RunV("go", "list", "-u", "-m", "-f", `{{if and (not .Indirect) .Update}}{{.Path}} {{.Version}} → {{.Update.Version}}{{end}}`, "all")
}

// Updates Go modules
func (QC) GoModUpdate() error {
	fmt.Println("\n🔄 Updating outdated Go modules...")
	if err := sh.RunV("go", "get", "-u"); err != nil {
		return err
	}
	return sh.RunV("go", "mod", "tidy")
}

// Runs go vet and staticcheck
func (QC) Vet() error {
	if err := isStaticcheckInstalled(); err != nil {
		return err
	}
	fmt.Println("\n🔎 Running go vet...")
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	fmt.Println("\n🔎 Running staticcheck...")
	return sh.RunV("staticcheck", "./...")
}

// Runs a trivy vulnerability scan on the project's dependencies.
func (QC) Trivy() error {
	if err := isTrivyInstalled(); err != nil {
		return err
	}
	fmt.Println("\n🔎 Running trivy scan on the project...")
	return sh.RunV("trivy", "fs", "--exit-code", "1", "--severity", "CRITICAL,HIGH", ".")
}

// Runs all checks that could cause a release to fail.
func (QC) PreRelease() error {
	mg.SerialDeps(QC.Vet, Test.Backend, QC.Trivy)
	return nil
}

// ===============================
// Test Tasks
// ===============================

const backendCoverageDir = "build/coverage"
const backendCoverageFile = backendCoverageDir + "/backend.coverage.out"

type Test mg.Namespace

// Runs backend tests
func (Test) Backend() error {
	fmt.Println("\n🔎 Running backend tests...")
	return sh.RunV("go", "test", "-race", "./...")
}

// Runs backend tests with coverage
func (Test) BackendCoverage() error {
	fmt.Println("\n🔎 Running backend tests...")
	os.MkdirAll(backendCoverageDir, os.ModePerm)
	return sh.RunV("go", "test", "./...", "-coverprofile="+backendCoverageFile)
}

// ===============================
// Build Tasks
// ===============================

// Builds the binary for the host platform.
func Build() error {
	return mage.BuildBinary(cfg)
}

// Cross-compiles release archives for every platform.
func Dist() error {
	mg.Deps(Clean.Build)
	return mage.Dist(cfg)
}

// ===============================
// GitHub Release Tasks
// ===============================

// Publishes a GitHub release using the current artifacts.
func Release() error {
	mg.Deps(Dist)
	return mage.PublishRelease(cfg)
}
