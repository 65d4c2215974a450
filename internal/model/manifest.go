package model

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"covimpact/internal/errors"
)

// ManifestName is the index file listing the artifacts in a models
// directory.
const ManifestName = "manifest.toml"

// Manifest indexes the model artifacts available in one directory.
type Manifest struct {
	Models []ModelInfo `toml:"models"`
}

// ModelInfo describes one trained artifact.
type ModelInfo struct {
	// Version is the dotted training-run version, e.g. "1.4.0"
	Version string `toml:"version"`

	// File is the artifact file name relative to the models directory
	File string `toml:"file"`

	// Trained is the training date, informational only
	Trained string `toml:"trained,omitempty"`

	// Samples is the training-set size, informational only
	Samples int `toml:"samples,omitempty"`
}

// LoadManifest reads the manifest from a models directory.
func LoadManifest(dir string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(filepath.Join(dir, ManifestName), &m); err != nil {
		return nil, errors.New(errors.ModelUnavailable, "failed to read model manifest", err)
	}
	if len(m.Models) == 0 {
		return nil, errors.New(errors.ModelUnavailable, "model manifest lists no artifacts", nil)
	}
	return &m, nil
}

// Latest returns the entry with the highest version.
func (m *Manifest) Latest() (ModelInfo, bool) {
	if len(m.Models) == 0 {
		return ModelInfo{}, false
	}
	best := m.Models[0]
	for _, candidate := range m.Models[1:] {
		if compareVersions(candidate.Version, best.Version) > 0 {
			best = candidate
		}
	}
	return best, true
}

// Resolve locates the artifact to load from a path that is either a
// single artifact file or a models directory with a manifest.
func Resolve(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.New(errors.ModelUnavailable, "model path does not exist", err)
	}
	if !info.IsDir() {
		return path, nil
	}

	m, err := LoadManifest(path)
	if err != nil {
		return "", err
	}
	latest, _ := m.Latest()
	return filepath.Join(path, latest.File), nil
}

// compareVersions orders dotted versions numerically segment by segment,
// falling back to string order for non-numeric segments.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var sa, sb string
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}
		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		default:
			if sa != sb {
				if sa < sb {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}
