package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/wordloop/store"
)

func (d *DB) CreateStudySession(ctx context.Context, create *store.StudySession) (*store.StudySession, error) {
	fields := []string{
		"uid", "user_id", "session_type", "total_items", "correct_items",
		"estimated_duration_seconds", "completed_ts",
	}
	args := []any{
		create.UID, create.UserID, create.SessionType, create.TotalItems, create.CorrectItems,
		create.EstimatedDurationSeconds, create.CompletedTs,
	}

	stmt := `INSERT INTO study_session (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id, created_ts`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create study session: %w", err)
	}
	return create, nil
}

func (d *DB) ListStudySessions(ctx context.Context, find *store.FindStudySession) ([]*store.StudySession, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UID; v != nil {
		where, args = append(where, "study_session.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "study_session.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, uid, user_id, session_type, total_items, correct_items,
			estimated_duration_seconds, completed_ts, created_ts
		FROM study_session
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY study_session.completed_ts DESC, study_session.id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query study sessions: %w", err)
	}
	defer rows.Close()

	list := make([]*store.StudySession, 0)
	for rows.Next() {
		var session store.StudySession
		if err := rows.Scan(
			&session.ID,
			&session.UID,
			&session.UserID,
			&session.SessionType,
			&session.TotalItems,
			&session.CorrectItems,
			&session.EstimatedDurationSeconds,
			&session.CompletedTs,
			&session.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan study session: %w", err)
		}
		list = append(list, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study sessions: %w", err)
	}
	return list, nil
}
