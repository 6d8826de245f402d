package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/wordloop/store"
)

func (d *DB) ListProgressRecords(ctx context.Context, find *store.FindProgressRecord) ([]*store.ProgressRecord, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "progress_record.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ItemID; v != nil {
		where, args = append(where, "progress_record.item_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			user_id, item_id, mastery_level, correct_count, incorrect_count,
			last_reviewed_ts, study_streak, is_difficult, version, created_ts, updated_ts
		FROM progress_record
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY progress_record.user_id ASC, progress_record.item_id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress records: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ProgressRecord, 0)
	for rows.Next() {
		var record store.ProgressRecord
		if err := rows.Scan(
			&record.UserID,
			&record.ItemID,
			&record.MasteryLevel,
			&record.CorrectCount,
			&record.IncorrectCount,
			&record.LastReviewedTs,
			&record.StudyStreak,
			&record.IsDifficult,
			&record.Version,
			&record.CreatedTs,
			&record.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan progress record: %w", err)
		}
		list = append(list, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress records: %w", err)
	}
	return list, nil
}

// UpsertProgressRecord writes the record only if the stored version still equals upsert.Version.
// Version 0 means the caller saw no row; ON CONFLICT DO NOTHING turns a racing insert into a conflict.
func (d *DB) UpsertProgressRecord(ctx context.Context, upsert *store.ProgressRecord) (*store.ProgressRecord, error) {
	now := time.Now().Unix()

	var stmt string
	var args []any
	if upsert.Version == 0 {
		fields := []string{
			"user_id", "item_id", "mastery_level", "correct_count", "incorrect_count",
			"last_reviewed_ts", "study_streak", "is_difficult", "version", "created_ts", "updated_ts",
		}
		args = []any{
			upsert.UserID, upsert.ItemID, upsert.MasteryLevel, upsert.CorrectCount, upsert.IncorrectCount,
			upsert.LastReviewedTs, upsert.StudyStreak, upsert.IsDifficult, 1, now, now,
		}
		stmt = `INSERT INTO progress_record (` + strings.Join(fields, ", ") + `)
			VALUES (` + placeholders(len(args)) + `)
			ON CONFLICT (user_id, item_id) DO NOTHING`
	} else {
		set := []string{
			"mastery_level = " + placeholder(1),
			"correct_count = " + placeholder(2),
			"incorrect_count = " + placeholder(3),
			"last_reviewed_ts = " + placeholder(4),
			"study_streak = " + placeholder(5),
			"is_difficult = " + placeholder(6),
			"updated_ts = " + placeholder(7),
			"version = version + 1",
		}
		args = []any{
			upsert.MasteryLevel, upsert.CorrectCount, upsert.IncorrectCount,
			upsert.LastReviewedTs, upsert.StudyStreak, upsert.IsDifficult, now,
			upsert.UserID, upsert.ItemID, upsert.Version,
		}
		stmt = `UPDATE progress_record SET ` + strings.Join(set, ", ") + `
			WHERE user_id = ` + placeholder(8) + ` AND item_id = ` + placeholder(9) + ` AND version = ` + placeholder(10)
	}

	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert progress record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to upsert progress record: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrRecordConflict
	}

	updated := *upsert
	updated.Version = upsert.Version + 1
	updated.UpdatedTs = now
	if upsert.Version == 0 {
		updated.CreatedTs = now
	}
	return &updated, nil
}

func (d *DB) ListLearners(ctx context.Context) ([]int32, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM progress_record ORDER BY user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query learners: %w", err)
	}
	defer rows.Close()

	list := make([]int32, 0)
	for rows.Next() {
		var userID int32
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan learner: %w", err)
		}
		list = append(list, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate learners: %w", err)
	}
	return list, nil
}
