package mage

import (
	"runtime"
	"time"
)

type BuildConfig struct {
	AppShortName string   // Binary name
	ArchType     string   // Architecture type (e.g., amd64, arm64)
	ArtifactsDir string   // Directory where release archives are stored
	BuildDir     string   // Directory to place build outputs
	BuildTime    string   // Build time in RFC3339 format
	Commit       string   // Git commit hash
	IsPrerelease bool     // Indicates a -rc/-beta style version
	MainPackage  string   // Package holding func main
	OsType       string   // Operating system type (e.g., linux, windows)
	PackagePath  string   // Go module package path
	Platforms    []string // GOOS/GOARCH pairs built by Dist
	ReleaseRepo  string   // GitHub repository for releases
	Version      string   // Version of the build
}

func NewBuildConfig() BuildConfig {
	now := time.Now().UTC()
	version := gitDescribe()

	return BuildConfig{
		AppShortName: "driftcheck",
		ArchType:     runtime.GOARCH,
		ArtifactsDir: "build/artifacts",
		BuildDir:     "build",
		BuildTime:    now.Format(time.RFC3339),
		Commit:       gitRevParse(),
		IsPrerelease: isPrerelease(version),
		MainPackage:  ".",
		OsType:       runtime.GOOS,
		PackagePath:  "github.com/luxury-yacht/driftcheck",
		Platforms:    []string{"linux/amd64", "linux/arm64", "darwin/amd64", "darwin/arm64", "windows/amd64"},
		ReleaseRepo:  "luxury-yacht/driftcheck",
		Version:      version,
	}
}
