package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// ============================================================
// File Storage
// ============================================================

// FileStorage keeps per-plan files: the uploaded source SVG and the last export.
type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) PlanDir(planID string) string {
	return filepath.Join(s.root, filepath.Base(planID))
}

func (s *FileStorage) SourcePath(planID string) string {
	return filepath.Join(s.PlanDir(planID), "source.svg")
}

func (s *FileStorage) ExportPath(planID string) string {
	return filepath.Join(s.PlanDir(planID), "plan.svg")
}

func (s *FileStorage) EnsureDir(planID string) error {
	if err := os.MkdirAll(s.PlanDir(planID), 0o755); err != nil {
		return fmt.Errorf("mkdir plan dir: %w", err)
	}
	return nil
}

// SaveFile writes data to target, creating the plan directory first.
func (s *FileStorage) SaveFile(planID, target string, data []byte) error {
	if err := s.EnsureDir(planID); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

func (s *FileStorage) Remove(planID string) error {
	return os.RemoveAll(s.PlanDir(planID))
}
