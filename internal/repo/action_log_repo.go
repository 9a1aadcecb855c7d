package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/phishsim/internal/model"
	"github.com/xxxsen/phishsim/internal/pkg/dbutil"
)

type ActionLogRepo struct {
	db *sql.DB
}

func NewActionLogRepo(db *sql.DB) *ActionLogRepo {
	return &ActionLogRepo{db: db}
}

func (r *ActionLogRepo) Create(ctx context.Context, entry *model.ActionLog) error {
	details := entry.Details
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}
	sqlStr, args, err := builder.BuildInsert("action_logs", []map[string]interface{}{{
		"user_id": entry.UserID,
		"action":  entry.Action,
		"details": string(details),
		"ctime":   entry.Ctime,
	}})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	return r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&entry.ID)
}

func (r *ActionLogRepo) CountByAction(ctx context.Context, action string) (int64, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(1) FROM action_logs WHERE action = ?", []interface{}{action})
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
