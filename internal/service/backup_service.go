package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"cipherquest/internal/models"
	"cipherquest/internal/validation"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete backup structure
type BackupData struct {
	Version      string                  `json:"version"`
	ExportedAt   time.Time               `json:"exported_at"`
	DatabaseType string                  `json:"database_type"`
	Users        []models.User           `json:"users"`
	Progress     []models.ProgressRecord `json:"progress"`
}

// ImportStats counts what an import touched
type ImportStats struct {
	Users    int
	Progress int
}

// BackupService handles export and merge-import of progress
type BackupService struct {
	store        ProgressStore
	users        UserStore
	databaseType string
}

// NewBackupService creates a new backup service
func NewBackupService(store ProgressStore, users UserStore, databaseType string) *BackupService {
	return &BackupService{
		store:        store,
		users:        users,
		databaseType: databaseType,
	}
}

// Export writes a complete backup to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	log.Println("Starting progress export...")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}

	log.Printf("Progress exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter writes a complete backup to w
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.databaseType,
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	backup.Users = users

	records, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to export progress: %w", err)
	}
	backup.Progress = records

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d users, %d progress records", len(backup.Users), len(backup.Progress))
	return nil
}

// Import merges a backup file into the stores
func (s *BackupService) Import(ctx context.Context, inputPath string) (*ImportStats, error) {
	log.Printf("Starting progress import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader merges a backup into the stores. Existing progress is
// never lowered: attempts take the larger count and solved is OR'ed. The
// whole backup is validated before anything is written.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) (*ImportStats, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	if err := validateBackup(&backup); err != nil {
		return nil, err
	}

	stats := &ImportStats{}
	for _, u := range backup.Users {
		if _, err := s.users.UpsertUser(ctx, u.ID, u.Username); err != nil {
			return stats, fmt.Errorf("failed to import user %s: %w", u.ID, err)
		}
		stats.Users++
	}

	for _, p := range backup.Progress {
		if _, err := s.store.Restore(ctx, p); err != nil {
			return stats, fmt.Errorf("failed to import progress %s/%s: %w", p.UserID, p.ChallengeID, err)
		}
		stats.Progress++
	}

	log.Printf("Import complete: %d users, %d progress records", stats.Users, stats.Progress)
	return stats, nil
}

func validateBackup(backup *BackupData) error {
	for i, u := range backup.Users {
		if err := validation.ValidateUserID(u.ID); err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
		if err := validation.ValidateUsername(u.Username); err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
	}

	seen := make(map[models.ProgressKey]bool, len(backup.Progress))
	for i, p := range backup.Progress {
		if err := validation.ValidateUserID(p.UserID); err != nil {
			return fmt.Errorf("progress %d: %w", i, err)
		}
		if err := validation.ValidateChallengeID(p.ChallengeID); err != nil {
			return fmt.Errorf("progress %d: %w", i, err)
		}
		if p.Attempts < 0 {
			return fmt.Errorf("progress %d: attempts must not be negative", i)
		}
		if seen[p.Key()] {
			return fmt.Errorf("progress %d: duplicate record for %s/%s", i, p.UserID, p.ChallengeID)
		}
		seen[p.Key()] = true
	}
	return nil
}
