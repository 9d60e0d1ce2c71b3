package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/wavecast/wavecast/internal/models"
	"github.com/wavecast/wavecast/internal/shared"
)

// WatchHistoryRepository records live sessions the user has watched.
type WatchHistoryRepository struct {
	db *sql.DB
}

// NewWatchHistoryRepository creates a new [WatchHistoryRepository] with the given database connection
func NewWatchHistoryRepository(db *sql.DB) *WatchHistoryRepository {
	return &WatchHistoryRepository{db: db}
}

// Create inserts a new watch entry with a generated ID.
func (r *WatchHistoryRepository) Create(entry *models.WatchEntry) error {
	sequence, err := NextSequence(r.db, "watch_history")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	entry.ID = shared.GenerateID()

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO watch_history (id, sequence, stream_id, streamer_name, started_at, last_viewer_count, comment_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, entry.ID, sequence, entry.StreamID,
		entry.StreamerName, entry.StartedAt, entry.LastViewerCount, entry.CommentCount)
	if err != nil {
		return fmt.Errorf("failed to insert watch entry: %w", err)
	}

	return nil
}

// Finish stamps an entry with its end time and final counters.
func (r *WatchHistoryRepository) Finish(id string, endedAt time.Time, viewerCount, commentCount int) error {
	query := `
		UPDATE watch_history
		SET ended_at = ?, last_viewer_count = ?, comment_count = ?
		WHERE id = ? AND ended_at IS NULL
	`

	result, err := r.db.Exec(query, endedAt, viewerCount, commentCount, id)
	if err != nil {
		return fmt.Errorf("failed to finish watch entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("watch entry not found or already finished: %s", id)
	}

	return nil
}

// List retrieves watch entries, most recent first. Criteria supports
// "stream_id" (string).
func (r *WatchHistoryRepository) List(criteria map[string]any) ([]*models.WatchEntry, error) {
	query := `
		SELECT id, stream_id, streamer_name, started_at, ended_at, last_viewer_count, comment_count
		FROM watch_history
	`

	args := []any{}

	if streamID, ok := criteria["stream_id"].(string); ok && streamID != "" {
		query += " WHERE stream_id = ?"
		args = append(args, streamID)
	}

	query += " ORDER BY started_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query watch history: %w", err)
	}
	defer rows.Close()

	var entries []*models.WatchEntry
	for rows.Next() {
		var entry models.WatchEntry
		var endedAt sql.NullTime
		err := rows.Scan(&entry.ID, &entry.StreamID, &entry.StreamerName,
			&entry.StartedAt, &endedAt, &entry.LastViewerCount, &entry.CommentCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch entry: %w", err)
		}
		if endedAt.Valid {
			entry.EndedAt = &endedAt.Time
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}
