package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/leadio/leadio-server/internal/model"
	"github.com/leadio/leadio-server/internal/repository"
	"github.com/leadio/leadio-server/internal/storage"
)

// CleanupStats reports the outcome of one expire cycle. A batch of N expired
// reports may produce 0..N successes; failures are logged per item and never
// abort the batch.
type CleanupStats struct {
	Found   int
	Cleaned int
}

// ReminderNotifier resolves a user's address and sends the reminder. The
// default deployment has no user directory on this side, so the hook is nil
// and reminder cycles only log intent.
type ReminderNotifier func(ctx context.Context, userID string, reports []*model.Report) error

type CleanupService struct {
	repo           repository.ReportRepository
	storage        storage.Backend
	purgeRetention time.Duration
	reminderWindow time.Duration
	notifier       ReminderNotifier
}

func NewCleanupService(repo repository.ReportRepository, backend storage.Backend, purgeRetention, reminderWindow time.Duration) *CleanupService {
	return &CleanupService{
		repo:           repo,
		storage:        backend,
		purgeRetention: purgeRetention,
		reminderWindow: reminderWindow,
	}
}

// SetReminderNotifier installs the reminder dispatch hook.
func (s *CleanupService) SetReminderNotifier(fn ReminderNotifier) {
	s.notifier = fn
}

// ExpireCycle soft-deletes reports past their expiry after a best-effort
// storage delete. Processing order is oldest-first so the most overdue
// reports are handled first if the run is interrupted.
func (s *CleanupService) ExpireCycle(ctx context.Context) (CleanupStats, error) {
	expired, err := s.repo.Expired(ctx, time.Now())
	if err != nil {
		return CleanupStats{}, err
	}

	stats := CleanupStats{Found: len(expired)}
	if len(expired) == 0 {
		slog.Info("no expired reports to clean up")
		return stats, nil
	}

	for _, report := range expired {
		ref := report.ReportURL
		if report.StorageKey != nil && *report.StorageKey != "" {
			ref = *report.StorageKey
		}

		_, err := s.storage.Delete(ctx, ref)
		if err != nil {
			slog.Warn("failed to delete expired report object", "error", err, "report_id", report.ID)
		}

		err = s.repo.SoftDelete(ctx, report.ID)
		if err != nil {
			slog.Error("failed to soft-delete expired report", "error", err, "report_id", report.ID)
			continue
		}
		stats.Cleaned++
	}

	slog.Info("expired reports cleaned up", "cleaned", stats.Cleaned, "found", stats.Found)
	return stats, nil
}

// PurgeCycle hard-deletes rows soft-deleted longer ago than the retention
// window. Storage is not re-checked: the expire cycle or the user delete
// already attempted object cleanup.
func (s *CleanupService) PurgeCycle(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.purgeRetention)
	purged, err := s.repo.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	slog.Info("old deleted reports purged", "purged", purged, "cutoff", cutoff)
	return purged, nil
}

// ReminderCycle finds reports expiring within the reminder window, grouped by
// owner, and hands each group to the notifier hook.
func (s *CleanupService) ReminderCycle(ctx context.Context) (int, error) {
	expiring, err := s.repo.ExpiringWithin(ctx, time.Now(), s.reminderWindow)
	if err != nil {
		return 0, err
	}
	if len(expiring) == 0 {
		slog.Info("no expiration reminders to send")
		return 0, nil
	}

	byUser := map[string][]*model.Report{}
	for _, report := range expiring {
		byUser[report.UserID] = append(byUser[report.UserID], report)
	}

	notified := 0
	for userID, reports := range byUser {
		if s.notifier == nil {
			slog.Info("would send expiration reminder", "user_id", userID, "reports", len(reports))
			notified++
			continue
		}
		err := s.notifier(ctx, userID, reports)
		if err != nil {
			slog.Error("failed to send expiration reminder", "error", err, "user_id", userID)
			continue
		}
		notified++
	}

	slog.Info("expiration reminders processed", "users", notified)
	return notified, nil
}

// HealthSnapshot logs the report table's lifecycle counters.
func (s *CleanupService) HealthSnapshot(ctx context.Context) {
	active, err := s.repo.CountByStatus(ctx, model.ReportStatusActive)
	if err != nil {
		slog.Error("health snapshot failed", "error", err)
		return
	}
	expired, err := s.repo.CountExpired(ctx, time.Now())
	if err != nil {
		slog.Error("health snapshot failed", "error", err)
		return
	}
	slog.Info("report lifecycle snapshot", "active", active, "pending_expiry", expired)
}
