package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/wavecast/wavecast/internal/models"
	"github.com/wavecast/wavecast/internal/shared"
)

// NotificationRepository caches inbox notifications locally. IDs come from
// the backend and are globally unique per user inbox; read and hide are
// one-way transitions enforced at this layer too.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new [NotificationRepository] with the given database connection
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Cache inserts a notification if its id is not already present. Returns true
// when the notification was newly cached, false for a duplicate.
func (r *NotificationRepository) Cache(n models.Notification) (bool, error) {
	if err := n.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "notifications")
	if err != nil {
		return false, fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO notifications
			(id, sequence, kind, content, related_stream_id, is_read, is_hidden, is_muted, created_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query, n.ID, sequence, string(n.Kind), n.Content,
		n.RelatedStreamID, n.IsRead, n.IsHidden, n.IsMuted, n.CreatedAt, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// Get retrieves a cached notification by ID.
func (r *NotificationRepository) Get(id string) (models.Notification, error) {
	query := `
		SELECT id, kind, content, related_stream_id, is_read, is_hidden, is_muted, created_at
		FROM notifications
		WHERE id = ?
	`

	var n models.Notification
	var kind string
	err := r.db.QueryRow(query, id).Scan(&n.ID, &kind, &n.Content,
		&n.RelatedStreamID, &n.IsRead, &n.IsHidden, &n.IsMuted, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Notification{}, fmt.Errorf("%w: %s", shared.ErrNotificationGone, id)
	}
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to query notification: %w", err)
	}
	n.Kind = models.NotificationKind(kind)

	return n, nil
}

// MarkRead transitions a notification to read. Already-read rows are left
// untouched; there is no reverse transition.
func (r *NotificationRepository) MarkRead(id string) error {
	result, err := r.db.Exec("UPDATE notifications SET is_read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNotificationGone, id)
	}
	return nil
}

// Hide transitions a notification to hidden. There is no reverse transition.
func (r *NotificationRepository) Hide(id string) error {
	result, err := r.db.Exec("UPDATE notifications SET is_hidden = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to hide notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNotificationGone, id)
	}
	return nil
}

// List retrieves cached notifications, newest first, excluding hidden ones.
// Criteria supports "unread" (bool) and "kind" (string).
func (r *NotificationRepository) List(criteria map[string]any) ([]models.Notification, error) {
	query := `
		SELECT id, kind, content, related_stream_id, is_read, is_hidden, is_muted, created_at
		FROM notifications
		WHERE is_hidden = 0
	`

	args := []any{}

	if unread, ok := criteria["unread"].(bool); ok && unread {
		query += " AND is_read = 0"
	}
	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var kind string
		err := rows.Scan(&n.ID, &kind, &n.Content, &n.RelatedStreamID,
			&n.IsRead, &n.IsHidden, &n.IsMuted, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Kind = models.NotificationKind(kind)
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return notifications, nil
}

// UnreadCount returns the number of cached unread, unhidden notifications.
func (r *NotificationRepository) UnreadCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM notifications WHERE is_read = 0 AND is_hidden = 0").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
