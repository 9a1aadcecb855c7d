package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/phishsim/internal/model"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
	"github.com/xxxsen/phishsim/internal/pkg/timeutil"
)

// Recorder persists decoy page captures. Fields are stored as submitted.
type Recorder interface {
	Record(ctx context.Context, s *model.Submission) error
	ListByCampaign(ctx context.Context, campaignID string) ([]*model.Submission, error)
}

type SubmissionService struct {
	submissions SubmissionStore
}

func NewSubmissionService(submissions SubmissionStore) *SubmissionService {
	return &SubmissionService{submissions: submissions}
}

func (s *SubmissionService) Record(ctx context.Context, sub *model.Submission) error {
	sub.CampaignID = strings.TrimSpace(sub.CampaignID)
	sub.CampaignType = strings.TrimSpace(sub.CampaignType)
	if sub.CampaignID == "" || sub.CampaignType == "" {
		return appErr.Invalid("campaignId and type are required")
	}
	if sub.Ctime == 0 {
		sub.Ctime = timeutil.NowUnix()
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("submission recorded",
		zap.String("campaign_id", sub.CampaignID),
		zap.String("type", sub.CampaignType),
		zap.Int64("submission_id", sub.ID),
	)
	return nil
}

func (s *SubmissionService) ListByCampaign(ctx context.Context, campaignID string) ([]*model.Submission, error) {
	return s.submissions.ListByCampaign(ctx, campaignID)
}
