package mage

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/magefile/mage/sh"
)

const checksumsFile = "checksums.txt"

type archiveSum struct {
	Name string
	Sum  string
}

type notesData struct {
	Version    string
	Commit     string
	BuildLabel string
	Prerelease bool
	Archives   []archiveSum
}

var notesTemplate = template.Must(template.New("notes").Parse(`## driftcheck {{ .Version }}

Built from {{ .Commit }} ({{ .BuildLabel }}).
{{- if .Prerelease }}

Prerelease: expect breaking changes to flags and report formats.
{{- end }}

| Archive | SHA-256 |
|---|---|
{{- range .Archives }}
| {{ .Name }} | ` + "`{{ .Sum }}`" + ` |
{{- end }}
`))

// readChecksums parses the shasum output written by Dist.
func readChecksums(dir string) ([]archiveSum, error) {
	f, err := os.Open(filepath.Join(dir, checksumsFile))
	if err != nil {
		return nil, fmt.Errorf("run mage dist first: %w", err)
	}
	defer f.Close()

	var sums []archiveSum
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		sums = append(sums, archiveSum{Name: fields[1], Sum: fields[0]})
	}
	return sums, scanner.Err()
}

func renderNotes(cfg BuildConfig, sums []archiveSum) (string, error) {
	label := "local build"
	if run := os.Getenv("GITHUB_RUN_NUMBER"); run != "" {
		label = "CI run #" + run
	}
	var b strings.Builder
	err := notesTemplate.Execute(&b, notesData{
		Version:    cfg.Version,
		Commit:     cfg.Commit,
		BuildLabel: label,
		Prerelease: cfg.IsPrerelease,
		Archives:   sums,
	})
	return b.String(), err
}

// PublishRelease uploads the Dist archives and checksums as a GitHub release. An
// existing release for the version is left untouched.
func PublishRelease(cfg BuildConfig) error {
	if _, err := exec.LookPath("gh"); err != nil {
		return fmt.Errorf("gh CLI is required to publish releases: %w", err)
	}
	if sh.Run("gh", "release", "view", cfg.Version, "--repo", cfg.ReleaseRepo) == nil {
		fmt.Printf("Release %s already exists in %s\n", cfg.Version, cfg.ReleaseRepo)
		return nil
	}

	sums, err := readChecksums(cfg.ArtifactsDir)
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		return fmt.Errorf("%s lists no archives", checksumsFile)
	}
	notes, err := renderNotes(cfg, sums)
	if err != nil {
		return fmt.Errorf("failed to render release notes: %w", err)
	}

	args := []string{"release", "create", cfg.Version, "--title", cfg.Version, "--notes", notes, "--repo", cfg.ReleaseRepo}
	if cfg.IsPrerelease {
		args = append(args, "--prerelease")
	}
	for _, s := range sums {
		args = append(args, filepath.Join(cfg.ArtifactsDir, s.Name))
	}
	args = append(args, filepath.Join(cfg.ArtifactsDir, checksumsFile))

	fmt.Printf("\n🎯 Creating release %s\n", cfg.Version)
	if err := sh.RunV("gh", args...); err != nil {
		return fmt.Errorf("failed to create release %s: %w", cfg.Version, err)
	}
	return nil
}
