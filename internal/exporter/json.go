package exporter

import (
	"encoding/json"
	"os"
	"path/filepath"

	apperrors "c19pulse/internal/errors"
	"c19pulse/pkg/contracts/domain"
)

// WriteJSON writes the report as indented JSON. The file is written to a
// temporary path first and renamed into place.
func WriteJSON(path string, r *domain.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("failed to marshal report", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return apperrors.NewStorageError("failed to write file", err).WithContext("path", tempPath)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return apperrors.NewStorageError("failed to rename file", err).WithContext("path", path)
	}
	return nil
}
