package chains

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotCompiled       = errors.New("build output not found")
	ErrArtifactNotFound  = errors.New("artifact not found")
	ErrAmbiguousArtifact = errors.New("contract name is ambiguous")
)

// FindArtifact looks for {Source}.sol/{contract}.json below root.
// build-info and debug files are never candidates. Two sources declaring
// the same contract name is an error: the caller has no way to pick one.
func FindArtifact(root, contract string) (string, error) {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotCompiled, root)
		}
		return "", err
	}

	want := contract + ".json"
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == want && strings.HasSuffix(filepath.Dir(path), ".sol") {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, contract)
	case 1:
		return matches[0], nil
	}

	sources := make([]string, len(matches))
	for i, m := range matches {
		rel, err := filepath.Rel(root, filepath.Dir(m))
		if err != nil {
			rel = filepath.Dir(m)
		}
		sources[i] = rel
	}
	return "", fmt.Errorf("%w: %s is declared in %s", ErrAmbiguousArtifact, contract, strings.Join(sources, ", "))
}
