package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadImage reads a macro image from path.
//
// Raw images (.bin, .img, .eep, or no extension) are used byte for byte.
// Definition files (.yaml, .yml, .toml) are parsed and encoded with
// Definition.Build using slotSize.
func LoadImage(path string, slotSize int) (Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", path, err)
	}

	if IsDefinitionFile(path) {
		def, err := ParseDefinition(path, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		mem, err := def.Build(slotSize)
		if err != nil {
			var de *DefinitionError
			if errors.As(err, &de) && de.Path == "" {
				de.Path = path
			}
			return nil, err
		}
		return mem, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case "", ".bin", ".img", ".eep":
		return Memory(data), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// SaveImage writes mem to path atomically using a temporary file and rename.
func SaveImage(path string, mem Memory) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, mem, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
