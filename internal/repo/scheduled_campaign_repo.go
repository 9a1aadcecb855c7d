package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/phishsim/internal/model"
	"github.com/xxxsen/phishsim/internal/pkg/dbutil"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
)

const emailSeparator = ","

var campaignColumns = []string{
	"id", "campaign_id", "teacher_id", "student_emails", "campaign_type",
	"schedule", "scheduled_time", "sent", "ctime",
}

type ScheduledCampaignRepo struct {
	db *sql.DB
}

func NewScheduledCampaignRepo(db *sql.DB) *ScheduledCampaignRepo {
	return &ScheduledCampaignRepo{db: db}
}

func (r *ScheduledCampaignRepo) Create(ctx context.Context, c *model.ScheduledCampaign) error {
	data := map[string]interface{}{
		"campaign_id":    c.CampaignID,
		"teacher_id":     c.TeacherID,
		"student_emails": strings.Join(c.StudentEmails, emailSeparator),
		"campaign_type":  c.CampaignType,
		"schedule":       c.Schedule,
		"scheduled_time": c.ScheduledTime,
		"sent":           c.Sent,
		"ctime":          c.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("scheduled_campaigns", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&c.ID); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ScheduledCampaignRepo) GetByCampaignID(ctx context.Context, campaignID string) (*model.ScheduledCampaign, error) {
	sqlStr, args, err := builder.BuildSelect("scheduled_campaigns", map[string]interface{}{"campaign_id": campaignID}, campaignColumns)
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
	return scanCampaign(rows)
}

// ListByTeacher returns campaigns owned by teacherID, newest first. A zero
// teacherID lists every campaign.
func (r *ScheduledCampaignRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.ScheduledCampaign, error) {
	where := map[string]interface{}{"_orderby": "ctime desc, id desc"}
	if teacherID != 0 {
		where["teacher_id"] = teacherID
	}
	sqlStr, args, err := builder.BuildSelect("scheduled_campaigns", where, campaignColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]*model.ScheduledCampaign, 0)
	for rows.Next() {
		item, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeliverNextDue claims one due, unsent row that is not in exclude, hands it to
// deliver and marks it sent, all in one transaction. The row lock is taken
// with SKIP LOCKED so concurrent pollers never claim the same row. It returns
// nil when no due row is left. When deliver fails the transaction is rolled
// back, the row stays unsent and the claimed campaign is returned with the
// error so the caller can exclude it.
func (r *ScheduledCampaignRepo) DeliverNextDue(ctx context.Context, now int64, exclude []int64, deliver func(ctx context.Context, c *model.ScheduledCampaign) error) (*model.ScheduledCampaign, error) {
	var claimed *model.ScheduledCampaign
	err := WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		query := "SELECT " + strings.Join(campaignColumns, ", ") +
			" FROM scheduled_campaigns WHERE sent IS NULL AND scheduled_time <= ?"
		args := []interface{}{now}
		if len(exclude) > 0 {
			query += " AND id NOT IN (?" + strings.Repeat(", ?", len(exclude)-1) + ")"
			for _, id := range exclude {
				args = append(args, id)
			}
		}
		query += " ORDER BY scheduled_time ASC, id ASC LIMIT 1 FOR UPDATE SKIP LOCKED"
		query, args = dbutil.Finalize(query, args)
		item, err := scanCampaign(tx.QueryRowContext(ctx, query, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		claimed = item
		if err := deliver(ctx, item); err != nil {
			return err
		}
		markSQL, markArgs := dbutil.Finalize(
			"UPDATE scheduled_campaigns SET sent = ? WHERE id = ? AND sent IS NULL",
			[]interface{}{now, item.ID},
		)
		if _, err := tx.ExecContext(ctx, markSQL, markArgs...); err != nil {
			return err
		}
		sent := now
		item.Sent = &sent
		return nil
	})
	return claimed, err
}

func scanCampaign(row rowScanner) (*model.ScheduledCampaign, error) {
	var (
		item   model.ScheduledCampaign
		emails string
		sent   sql.NullInt64
	)
	if err := row.Scan(&item.ID, &item.CampaignID, &item.TeacherID, &emails, &item.CampaignType,
		&item.Schedule, &item.ScheduledTime, &sent, &item.Ctime); err != nil {
		return nil, err
	}
	item.StudentEmails = splitEmails(emails)
	if sent.Valid {
		v := sent.Int64
		item.Sent = &v
	}
	return &item, nil
}

func splitEmails(value string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(value, emailSeparator) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
