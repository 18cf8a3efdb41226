package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"autoservice/internal/config"

	"github.com/rs/zerolog"
)

const (
	backupPrefix     = "autoservice_"
	backupSuffix     = ".db"
	backupTimeLayout = "20060102T150405.000"
	defaultInterval  = 24 * time.Hour
)

// ErrBackupUnsupported is returned for databases that live only in memory.
var ErrBackupUnsupported = errors.New("in-memory database cannot be backed up")

// BackupService snapshots the booking database on a fixed interval and keeps
// RetentionDays worth of snapshots.
type BackupService struct {
	db     *DB
	config config.BackupConfig
	logger *zerolog.Logger
	now    func() time.Time
}

func NewBackupService(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "backup").Logger()
	return &BackupService{db: db, config: cfg, logger: &l, now: time.Now}
}

// Start takes a snapshot right away and then once per interval until ctx ends.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("backups disabled")
		return
	}

	interval := s.interval()
	s.logger.Info().Dur("interval", interval).Int("retention_days", s.config.RetentionDays).Msg("backups started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *BackupService) interval() time.Duration {
	if s.config.Schedule == "" {
		return defaultInterval
	}
	d, err := time.ParseDuration(s.config.Schedule)
	if err != nil || d <= 0 {
		s.logger.Warn().Err(err).Str("schedule", s.config.Schedule).Msg("bad backup schedule, using 24h")
		return defaultInterval
	}
	return d
}

func (s *BackupService) runOnce(ctx context.Context) {
	path, err := s.PerformBackup(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("backup failed")
		return
	}
	s.logger.Info().Str("path", path).Msg("backup written")

	removed, err := s.Prune()
	if err != nil {
		s.logger.Warn().Err(err).Msg("backup pruning failed")
	} else if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("old backups pruned")
	}
}

// PerformBackup writes a consistent copy of the database with VACUUM INTO and
// returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if s.db.Path() == ":memory:" || strings.Contains(s.db.Path(), "mode=memory") {
		return "", ErrBackupUnsupported
	}
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := backupPrefix + s.now().UTC().Format(backupTimeLayout) + backupSuffix
	path := filepath.Join(s.config.StoragePath, name)

	quoted := strings.ReplaceAll(path, "'", "''")
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return "", fmt.Errorf("failed to vacuum into %s: %w", path, err)
	}
	return path, nil
}

// Backups lists snapshot files in the storage directory, oldest first.
// Files that do not follow the naming scheme are ignored.
func (s *BackupService) Backups() ([]string, error) {
	entries, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := backupTime(e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Prune deletes snapshots taken more than RetentionDays ago, judged by the
// timestamp in the file name. Zero retention keeps everything.
func (s *BackupService) Prune() (int, error) {
	if s.config.RetentionDays <= 0 {
		return 0, nil
	}
	names, err := s.Backups()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().UTC().AddDate(0, 0, -s.config.RetentionDays)
	removed := 0
	for _, name := range names {
		taken, _ := backupTime(name)
		if !taken.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.config.StoragePath, name)); err != nil {
			return removed, fmt.Errorf("failed to remove backup %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

func backupTime(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), backupSuffix)
	t, err := time.Parse(backupTimeLayout, stamp)
	return t, err == nil
}
