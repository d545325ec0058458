package filestorage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/coursemarket/internal/pkg/logger"
)

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// Save stores content under subPath and returns its public URL
	Save(filename string, content io.Reader, subPath string) (string, error)

	// DeleteFile removes a file previously returned by Save
	DeleteFile(fileURL string) error

	// GetFullPath returns the full filesystem path for a given file URL
	GetFullPath(fileURL string) string
}

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // root directory where files are stored
	baseURL  string // URL prefix under which basePath is served
}

var _ FileStorage = (*LocalStorage)(nil)

// NewLocalStorage creates a new LocalStorage instance.
// baseURL is optional; without it returned paths are relative to /uploads.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// BasePath is the directory served under /uploads
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// cleanSubPath keeps subPath inside basePath
func cleanSubPath(subPath string) (string, error) {
	if subPath == "" {
		return "", nil
	}
	cleaned := filepath.Clean(subPath)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage sub path: %s", subPath)
	}
	return cleaned, nil
}

// Save writes content to a uniquely named file. The original extension is kept.
func (ls *LocalStorage) Save(filename string, content io.Reader, subPath string) (string, error) {
	subPath, err := cleanSubPath(subPath)
	if err != nil {
		return "", err
	}

	fullDirPath := filepath.Join(ls.basePath, subPath)
	if err := os.MkdirAll(fullDirPath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", fullDirPath).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	uniqueFilename := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	dstPath := filepath.Join(fullDirPath, uniqueFilename)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, content); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	urlPath := uniqueFilename
	if subPath != "" {
		urlPath = filepath.ToSlash(subPath) + "/" + uniqueFilename
	}

	accessiblePath := "/uploads/" + urlPath
	if ls.baseURL != "" {
		accessiblePath = ls.baseURL + "/" + urlPath
	}

	logger.Info().Str("filename", filename).Str("saved_as", uniqueFilename).Str("accessible_path", accessiblePath).Msg("File saved successfully")
	return accessiblePath, nil
}

// relative maps a URL returned by Save back to a path below basePath
func (ls *LocalStorage) relative(fileURL string) string {
	rel := fileURL
	if ls.baseURL != "" && strings.HasPrefix(rel, ls.baseURL+"/") {
		rel = strings.TrimPrefix(rel, ls.baseURL+"/")
	} else {
		rel = strings.TrimPrefix(rel, "/uploads/")
	}
	cleaned, err := cleanSubPath(filepath.FromSlash(rel))
	if err != nil || cleaned == "" || cleaned == "." {
		return ""
	}
	return cleaned
}

// DeleteFile removes a stored file. A missing file is not an error.
func (ls *LocalStorage) DeleteFile(fileURL string) error {
	if fileURL == "" {
		return nil
	}

	physicalPath := ls.GetFullPath(fileURL)
	if physicalPath == "" {
		return fmt.Errorf("invalid file path: %s", fileURL)
	}

	if err := os.Remove(physicalPath); err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
			return nil
		}
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", physicalPath).Msg("File deleted successfully")
	return nil
}

// GetFullPath returns the full filesystem path for a given file URL
func (ls *LocalStorage) GetFullPath(fileURL string) string {
	rel := ls.relative(fileURL)
	if rel == "" {
		return ""
	}
	return filepath.Join(ls.basePath, rel)
}
