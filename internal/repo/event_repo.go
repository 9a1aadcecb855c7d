package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/phishsim/internal/model"
	"github.com/xxxsen/phishsim/internal/pkg/dbutil"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
)

var eventColumns = []string{"id", "user_id", "campaign_id", "event_type", "ip_address", "user_agent", "additional_data", "ctime"}

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Create(ctx context.Context, e *model.UserEvent) error {
	additional := e.AdditionalData
	if len(additional) == 0 {
		additional = json.RawMessage("{}")
	}
	sqlStr, args, err := builder.BuildInsert("user_events", []map[string]interface{}{{
		"user_id":         e.UserID,
		"campaign_id":     e.CampaignID,
		"event_type":      e.EventType,
		"ip_address":      e.IPAddress,
		"user_agent":      e.UserAgent,
		"additional_data": string(additional),
		"ctime":           e.Ctime,
	}})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	return r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&e.ID)
}

// List returns the events of userID, or every event when userID is zero.
func (r *EventRepo) List(ctx context.Context, userID int64) ([]*model.UserEvent, error) {
	where := map[string]interface{}{"_orderby": "ctime desc, id desc"}
	if userID != 0 {
		where["user_id"] = userID
	}
	sqlStr, args, err := builder.BuildSelect("user_events", where, eventColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]*model.UserEvent, 0)
	for rows.Next() {
		item, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *EventRepo) Get(ctx context.Context, id, userID int64) (*model.UserEvent, error) {
	where := map[string]interface{}{"id": id}
	if userID != 0 {
		where["user_id"] = userID
	}
	sqlStr, args, err := builder.BuildSelect("user_events", where, eventColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanEvent(rows)
}

func (r *EventRepo) Delete(ctx context.Context, id, userID int64) error {
	where := map[string]interface{}{"id": id}
	if userID != 0 {
		where["user_id"] = userID
	}
	sqlStr, args, err := builder.BuildDelete("user_events", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *EventRepo) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	sqlStr, args, err := builder.BuildDelete("user_events", map[string]interface{}{"user_id": userID})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *EventRepo) CountByType(ctx context.Context, userID int64) ([]model.EventCount, error) {
	query := "SELECT event_type, COUNT(1) FROM user_events"
	var args []interface{}
	if userID != 0 {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " GROUP BY event_type ORDER BY event_type"
	query, args = dbutil.Finalize(query, args)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	counts := make([]model.EventCount, 0)
	for rows.Next() {
		var item model.EventCount
		if err := rows.Scan(&item.EventType, &item.Count); err != nil {
			return nil, err
		}
		counts = append(counts, item)
	}
	return counts, rows.Err()
}

// CountCredentialCaptures counts events whose payload carries both an email and a pass key.
func (r *EventRepo) CountCredentialCaptures(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM user_events WHERE additional_data->'email' IS NOT NULL AND additional_data->'pass' IS NOT NULL",
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func scanEvent(row rowScanner) (*model.UserEvent, error) {
	var (
		item       model.UserEvent
		userID     sql.NullInt64
		additional []byte
	)
	if err := row.Scan(&item.ID, &userID, &item.CampaignID, &item.EventType, &item.IPAddress,
		&item.UserAgent, &additional, &item.Ctime); err != nil {
		return nil, err
	}
	if userID.Valid {
		v := userID.Int64
		item.UserID = &v
	}
	item.AdditionalData = json.RawMessage(additional)
	return &item, nil
}
