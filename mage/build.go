package mage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/sh"
)

// ldflags stamps version details into the cli package.
func ldflags(cfg BuildConfig) string {
	pkg := cfg.PackagePath + "/backend/cli"
	return strings.Join([]string{
		"-s", "-w",
		fmt.Sprintf("-X %s.Version=%s", pkg, cfg.Version),
		fmt.Sprintf("-X %s.Commit=%s", pkg, cfg.Commit),
		fmt.Sprintf("-X %s.BuildTime=%s", pkg, cfg.BuildTime),
	}, " ")
}

func binaryName(cfg BuildConfig, goos string) string {
	if goos == "windows" {
		return cfg.AppShortName + ".exe"
	}
	return cfg.AppShortName
}

// BuildBinary compiles the binary for the host platform into the build directory.
func BuildBinary(cfg BuildConfig) error {
	out := filepath.Join(cfg.BuildDir, binaryName(cfg, cfg.OsType))
	fmt.Printf("\n🛠️ Building %s %s for %s/%s\n", cfg.AppShortName, cfg.Version, cfg.OsType, cfg.ArchType)
	return sh.RunV("go", "build", "-trimpath", "-ldflags", ldflags(cfg), "-o", out, cfg.MainPackage)
}

// Dist cross-compiles every configured platform and packs one archive per platform,
// followed by a checksums file.
func Dist(cfg BuildConfig) error {
	if err := os.MkdirAll(cfg.ArtifactsDir, 0o755); err != nil {
		return err
	}
	var archives []string
	for _, platform := range cfg.Platforms {
		goos, goarch, ok := strings.Cut(platform, "/")
		if !ok {
			return fmt.Errorf("invalid platform %q", platform)
		}
		stage := filepath.Join(cfg.BuildDir, "dist", goos+"-"+goarch)
		if err := os.MkdirAll(stage, 0o755); err != nil {
			return err
		}
		bin := filepath.Join(stage, binaryName(cfg, goos))

		fmt.Printf("\n🛠️ Building %s\n", platform)
		env := map[string]string{"GOOS": goos, "GOARCH": goarch, "CGO_ENABLED": "0"}
		if err := sh.RunWithV(env, "go", "build", "-trimpath", "-ldflags", ldflags(cfg), "-o", bin, cfg.MainPackage); err != nil {
			return err
		}

		archive, err := packArchive(cfg, stage, goos, goarch)
		if err != nil {
			return err
		}
		archives = append(archives, archive)
	}
	return writeChecksums(cfg, archives)
}

func packArchive(cfg BuildConfig, stage, goos, goarch string) (string, error) {
	base := fmt.Sprintf("%s_%s_%s_%s", cfg.AppShortName, cfg.Version, goos, goarch)
	if goos == "windows" {
		archive, err := filepath.Abs(filepath.Join(cfg.ArtifactsDir, base+".zip"))
		if err != nil {
			return "", err
		}
		return archive, sh.RunV("zip", "-j", archive, filepath.Join(stage, binaryName(cfg, goos)))
	}
	archive := filepath.Join(cfg.ArtifactsDir, base+".tar.gz")
	return archive, sh.RunV("tar", "-czf", archive, "-C", stage, binaryName(cfg, goos))
}

func writeChecksums(cfg BuildConfig, archives []string) error {
	args := []string{"-a", "256"}
	for _, archive := range archives {
		args = append(args, filepath.Base(archive))
	}
	out, err := shOutputIn(cfg.ArtifactsDir, "shasum", args...)
	if err != nil {
		return fmt.Errorf("failed to checksum archives: %w", err)
	}
	path := filepath.Join(cfg.ArtifactsDir, checksumsFile)
	fmt.Println("\n✏️ Writing", path)
	return os.WriteFile(path, []byte(out+"\n"), 0o644)
}

// shOutputIn runs cmd inside dir and returns its trimmed stdout.
func shOutputIn(dir, cmd string, args ...string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if err := os.Chdir(dir); err != nil {
		return "", err
	}
	defer os.Chdir(wd)
	return sh.Output(cmd, args...)
}
