package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/phishsim/internal/model"
	"github.com/xxxsen/phishsim/internal/pkg/dbutil"
)

var submissionColumns = []string{
	"id", "campaign_id", "campaign_type", "username", "password", "name", "address",
	"phone", "email", "ip_address", "user_agent", "additional_data", "user_id", "ctime",
}

const ownedSubmissionFilter = " WHERE (user_id = ? OR campaign_id IN (SELECT campaign_id FROM scheduled_campaigns WHERE teacher_id = ?))"

type SubmissionRepo struct {
	db *sql.DB
}

func NewSubmissionRepo(db *sql.DB) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

func (r *SubmissionRepo) Create(ctx context.Context, s *model.Submission) error {
	additional := s.AdditionalData
	if len(additional) == 0 {
		additional = json.RawMessage("{}")
	}
	data := map[string]interface{}{
		"campaign_id":     s.CampaignID,
		"campaign_type":   s.CampaignType,
		"username":        s.Username,
		"password":        s.Password,
		"name":            s.Name,
		"address":         s.Address,
		"phone":           s.Phone,
		"email":           s.Email,
		"ip_address":      s.IPAddress,
		"user_agent":      s.UserAgent,
		"additional_data": string(additional),
		"user_id":         s.UserID,
		"ctime":           s.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("submissions", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	return r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&s.ID)
}

func (r *SubmissionRepo) ListByCampaign(ctx context.Context, campaignID string) ([]*model.Submission, error) {
	sqlStr, args, err := builder.BuildSelect("submissions", map[string]interface{}{
		"campaign_id": campaignID,
		"_orderby":    "ctime asc, id asc",
	}, submissionColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.query(ctx, sqlStr, args)
}

// List returns submissions visible to ownerID: the ones it submitted and the
// ones captured by its campaigns. A zero ownerID lists everything.
func (r *SubmissionRepo) List(ctx context.Context, ownerID int64) ([]*model.Submission, error) {
	query := "SELECT " + strings.Join(submissionColumns, ", ") + " FROM submissions"
	var args []interface{}
	if ownerID != 0 {
		query += ownedSubmissionFilter
		args = append(args, ownerID, ownerID)
	}
	query += " ORDER BY ctime DESC, id DESC"
	query, args = dbutil.Finalize(query, args)
	return r.query(ctx, query, args)
}

func (r *SubmissionRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM submissions").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Aggregate sums the numeric totalClicks and totalInputs keys of additional_data.
func (r *SubmissionRepo) Aggregate(ctx context.Context, ownerID int64) (*model.AggregatedMetrics, error) {
	query := `SELECT COUNT(1),
		COALESCE(SUM(CASE WHEN jsonb_typeof(additional_data->'totalClicks') = 'number' THEN (additional_data->>'totalClicks')::numeric ELSE 0 END), 0)::bigint,
		COALESCE(SUM(CASE WHEN jsonb_typeof(additional_data->'totalInputs') = 'number' THEN (additional_data->>'totalInputs')::numeric ELSE 0 END), 0)::bigint
		FROM submissions`
	var args []interface{}
	if ownerID != 0 {
		query += ownedSubmissionFilter
		args = append(args, ownerID, ownerID)
	}
	query, args = dbutil.Finalize(query, args)
	var metrics model.AggregatedMetrics
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&metrics.TotalEvents, &metrics.TotalClicks, &metrics.TotalInputs); err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (r *SubmissionRepo) query(ctx context.Context, sqlStr string, args []interface{}) ([]*model.Submission, error) {
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]*model.Submission, 0)
	for rows.Next() {
		var (
			item       model.Submission
			additional []byte
			userID     sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.CampaignID, &item.CampaignType, &item.Username, &item.Password,
			&item.Name, &item.Address, &item.Phone, &item.Email, &item.IPAddress, &item.UserAgent,
			&additional, &userID, &item.Ctime); err != nil {
			return nil, err
		}
		item.AdditionalData = json.RawMessage(additional)
		if userID.Valid {
			v := userID.Int64
			item.UserID = &v
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
