package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/phishsim/internal/filestore"
	mailer "github.com/xxxsen/phishsim/internal/mail"
	"github.com/xxxsen/phishsim/internal/model"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
	"github.com/xxxsen/phishsim/internal/pkg/timeutil"
)

const ActionCampaign = "campaign"

type CreateCampaignInput struct {
	StudentEmails []string
	CampaignType  string
	Schedule      string
	ScheduledTime string
}

type DeliveryReport struct {
	Sent   int
	Failed int
}

type CampaignService struct {
	campaigns CampaignStore
	logs      ActionLogStore
	gate      *AccessService
	sender    mailer.Sender
	archive   filestore.Store
	baseURL   string
	subject   string
	now       func() time.Time
}

type CampaignOption func(*CampaignService)

// WithArchive stores every delivered message under campaigns/<id>.eml.
func WithArchive(store filestore.Store) CampaignOption {
	return func(s *CampaignService) {
		s.archive = store
	}
}

func WithActionLog(logs ActionLogStore) CampaignOption {
	return func(s *CampaignService) {
		s.logs = logs
	}
}

func WithClock(now func() time.Time) CampaignOption {
	return func(s *CampaignService) {
		s.now = now
	}
}

func NewCampaignService(campaigns CampaignStore, gate *AccessService, sender mailer.Sender, baseURL, subject string, opts ...CampaignOption) *CampaignService {
	s := &CampaignService{
		campaigns: campaigns,
		gate:      gate,
		sender:    sender,
		baseURL:   strings.TrimRight(baseURL, "/"),
		subject:   subject,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmails(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			entry := strings.TrimSpace(part)
			if entry == "" {
				continue
			}
			parsed, err := mail.ParseAddress(entry)
			if err != nil {
				return nil, appErr.Invalid(fmt.Sprintf("invalid email: %s", entry))
			}
			addr := strings.ToLower(parsed.Address)
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			out = append(out, addr)
		}
	}
	if len(out) == 0 {
		return nil, appErr.Invalid("studentEmails is required")
	}
	return out, nil
}

// Create records a campaign for teacherID after a live can_start_campaign
// check. Immediate campaigns are delivered before the row is stored, so a
// transport failure leaves nothing behind.
func (s *CampaignService) Create(ctx context.Context, teacherID int64, in CreateCampaignInput) (*model.ScheduledCampaign, error) {
	if err := s.gate.Require(ctx, teacherID, model.CapabilityStartCampaign); err != nil {
		return nil, err
	}
	emails, err := normalizeEmails(in.StudentEmails)
	if err != nil {
		return nil, err
	}
	campaignType := strings.TrimSpace(in.CampaignType)
	if campaignType == "" {
		return nil, appErr.Invalid("campaignType is required")
	}
	now := s.now().UTC()
	c := &model.ScheduledCampaign{
		CampaignID:    newCampaignID(),
		TeacherID:     teacherID,
		StudentEmails: emails,
		CampaignType:  campaignType,
		Ctime:         now.Unix(),
	}
	logger := logutil.GetLogger(ctx).With(zap.String("campaign_id", c.CampaignID), zap.Int64("user_id", teacherID))
	switch strings.ToLower(strings.TrimSpace(in.Schedule)) {
	case model.ScheduleImmediate:
		c.Schedule = model.ScheduleImmediate
		c.ScheduledTime = now.Unix()
		if err := s.deliver(ctx, c); err != nil {
			logger.Error("immediate campaign delivery failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", appErr.ErrDelivery, err)
		}
		sent := now.Unix()
		c.Sent = &sent
	case model.ScheduleScheduled:
		if strings.TrimSpace(in.ScheduledTime) == "" {
			return nil, appErr.Invalid("scheduledTime is required for scheduled campaigns")
		}
		at, err := timeutil.ParseSchedule(strings.TrimSpace(in.ScheduledTime))
		if err != nil {
			return nil, appErr.Invalid("invalid scheduledTime")
		}
		c.Schedule = model.ScheduleScheduled
		c.ScheduledTime = at.Unix()
	default:
		return nil, appErr.Invalid("schedule must be immediate or scheduled")
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logAction(ctx, teacherID, c)
	logger.Info("campaign created", zap.String("schedule", c.Schedule), zap.Int("recipients", len(c.StudentEmails)))
	return c, nil
}

func (s *CampaignService) logAction(ctx context.Context, teacherID int64, c *model.ScheduledCampaign) {
	if s.logs == nil {
		return
	}
	details, _ := json.Marshal(map[string]interface{}{
		"campaignId":   c.CampaignID,
		"campaignType": c.CampaignType,
		"schedule":     c.Schedule,
		"recipients":   len(c.StudentEmails),
	})
	uid := teacherID
	entry := &model.ActionLog{UserID: &uid, Action: ActionCampaign, Details: details, Ctime: c.Ctime}
	if err := s.logs.Create(ctx, entry); err != nil {
		logutil.GetLogger(ctx).Error("record campaign action failed", zap.String("campaign_id", c.CampaignID), zap.Error(err))
	}
}

// List returns the campaigns of teacherID; admins see every campaign.
func (s *CampaignService) List(ctx context.Context, teacherID int64) ([]*model.ScheduledCampaign, error) {
	admin, err := s.gate.IsAdmin(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if admin {
		return s.campaigns.ListByTeacher(ctx, 0)
	}
	return s.campaigns.ListByTeacher(ctx, teacherID)
}

// Get returns one campaign owned by teacherID. Foreign campaigns read as not
// found unless the caller is an admin.
func (s *CampaignService) Get(ctx context.Context, teacherID int64, campaignID string) (*model.ScheduledCampaign, error) {
	c, err := s.campaigns.GetByCampaignID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.TeacherID == teacherID {
		return c, nil
	}
	admin, err := s.gate.IsAdmin(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, appErr.ErrNotFound
	}
	return c, nil
}

// Archive opens the stored copy of a delivered campaign message. It follows
// the same visibility rules as Get.
func (s *CampaignService) Archive(ctx context.Context, teacherID int64, campaignID string) (io.ReadCloser, error) {
	c, err := s.Get(ctx, teacherID, campaignID)
	if err != nil {
		return nil, err
	}
	if s.archive == nil || !c.IsSent() {
		return nil, appErr.ErrNotFound
	}
	return s.archive.Open(ctx, filestore.CampaignKey(c.CampaignID))
}

// DeliverDue sends every due, unsent campaign once. A campaign whose delivery
// fails stays unsent and is not attempted again during this call.
func (s *CampaignService) DeliverDue(ctx context.Context) (DeliveryReport, error) {
	var (
		report  DeliveryReport
		exclude []int64
	)
	logger := logutil.GetLogger(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		now := s.now().Unix()
		c, err := s.campaigns.DeliverNextDue(ctx, now, exclude, s.deliver)
		if c == nil {
			if err != nil {
				return report, err
			}
			break
		}
		if err != nil {
			report.Failed++
			exclude = append(exclude, c.ID)
			logger.Error("campaign delivery failed, will retry next tick",
				zap.String("campaign_id", c.CampaignID),
				zap.Error(err),
			)
			continue
		}
		report.Sent++
		logger.Info("campaign marked sent",
			zap.String("campaign_id", c.CampaignID),
			zap.Int("recipients", len(c.StudentEmails)),
		)
	}
	if report.Sent > 0 || report.Failed > 0 {
		logger.Info("due campaigns processed", zap.Int("sent", report.Sent), zap.Int("failed", report.Failed))
	}
	return report, nil
}

func (s *CampaignService) deliver(ctx context.Context, c *model.ScheduledCampaign) error {
	link := mailer.CampaignLink(s.baseURL, c.CampaignID, c.CampaignType)
	msg := mailer.CampaignMessage(s.subject, c.StudentEmails, link)
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send campaign mail: %w", err)
	}
	if s.archive == nil {
		return nil
	}
	raw, err := msg.Bytes()
	if err == nil {
		err = s.archive.Save(ctx, filestore.CampaignKey(c.CampaignID), raw)
	}
	if err != nil {
		logutil.GetLogger(ctx).Warn("archive campaign mail failed", zap.String("campaign_id", c.CampaignID), zap.Error(err))
	}
	return nil
}
