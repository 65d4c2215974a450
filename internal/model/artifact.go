package model

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"covimpact/internal/errors"
)

// Artifact container: 4-byte magic, big-endian uint16 format version,
// then a zstd-compressed JSON forest.
var artifactMagic = []byte("CIMF")

const artifactFormatVersion uint16 = 1

// Load reads and validates a model artifact. Every failure mode (missing
// file, bad magic, wrong version, corrupt payload, unsound ensemble)
// comes back as ModelUnavailable so callers can apply the neutral
// fallback uniformly.
func Load(path string) (*Forest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.ModelUnavailable, "model artifact not readable", err)
	}
	defer f.Close()

	header := make([]byte, len(artifactMagic)+2)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, errors.New(errors.ModelUnavailable, "model artifact truncated", err)
	}
	if !bytes.Equal(header[:len(artifactMagic)], artifactMagic) {
		return nil, errors.New(errors.ModelUnavailable, "not a model artifact (bad magic)", nil)
	}
	version := binary.BigEndian.Uint16(header[len(artifactMagic):])
	if version != artifactFormatVersion {
		return nil, errors.New(errors.ModelUnavailable,
			fmt.Sprintf("unsupported artifact format version %d", version), nil)
	}

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, errors.New(errors.ModelUnavailable, "failed to open compressed payload", err)
	}
	defer zr.Close()

	var forest Forest
	if err := json.NewDecoder(zr).Decode(&forest); err != nil {
		return nil, errors.New(errors.ModelUnavailable, "model artifact payload corrupt", err)
	}
	if err := forest.Validate(); err != nil {
		return nil, errors.New(errors.ModelUnavailable, "model artifact failed validation", err)
	}
	return &forest, nil
}

// Write serializes a forest into the artifact container. Used by tests
// and by the model import command.
func Write(path string, forest *Forest) error {
	if err := forest.Validate(); err != nil {
		return errors.New(errors.ModelUnavailable, "refusing to write invalid ensemble", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.New(errors.ModelUnavailable, "failed to create model artifact", err)
	}
	defer f.Close()

	if _, err := f.Write(artifactMagic); err != nil {
		return errors.New(errors.ModelUnavailable, "failed to write artifact header", err)
	}
	if err := binary.Write(f, binary.BigEndian, artifactFormatVersion); err != nil {
		return errors.New(errors.ModelUnavailable, "failed to write artifact header", err)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return errors.New(errors.ModelUnavailable, "failed to open compressed payload", err)
	}
	if err := json.NewEncoder(zw).Encode(forest); err != nil {
		zw.Close()
		return errors.New(errors.ModelUnavailable, "failed to encode ensemble", err)
	}
	if err := zw.Close(); err != nil {
		return errors.New(errors.ModelUnavailable, "failed to flush compressed payload", err)
	}
	return nil
}
