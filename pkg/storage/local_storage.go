package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type localStorage struct {
	basePath string
}

func newLocalStorage(basePath string) (*localStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create local storage directory: %w", err)
	}
	return &localStorage{basePath: basePath}, nil
}

func (s *localStorage) resolve(key string) string {
	return filepath.Join(s.basePath, filepath.Clean("/"+key))
}

func (s *localStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	path := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: create file: %w", err)
	}
	defer file.Close()
	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("storage: write file: %w", err)
	}
	return nil
}

func (s *localStorage) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(key))
	if err != nil {
		return nil, fmt.Errorf("storage: read file: %w", err)
	}
	return data, nil
}

func (s *localStorage) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.resolve(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}
