package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var AllowedReceiptTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ReceiptStore keeps uploaded receipt files in a local directory under
// generated names.
type ReceiptStore struct {
	Dir string
}

func NewReceiptStore(dir string) (*ReceiptStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &ReceiptStore{Dir: dir}, nil
}

// NewName returns a fresh stored name for contentType, or false when the
// type is not accepted.
func (s *ReceiptStore) NewName(contentType string) (string, bool) {
	ext, ok := AllowedReceiptTypes[normalizeContentType(contentType)]
	if !ok {
		return "", false
	}

	return uuid.NewString() + ext, true
}

func (s *ReceiptStore) Path(storedName string) string {
	return filepath.Join(s.Dir, filepath.Base(storedName))
}

func (s *ReceiptStore) Read(storedName string) ([]byte, error) {
	return os.ReadFile(s.Path(storedName))
}

func (s *ReceiptStore) Remove(storedName string) error {
	err := os.Remove(s.Path(storedName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func normalizeContentType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
