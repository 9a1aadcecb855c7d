package service

import (
	"context"

	"github.com/xxxsen/phishsim/internal/model"
)

type UserStore interface {
	Register(ctx context.Context, user *model.User, afterInsert func(ctx context.Context) error) error
	GetByID(ctx context.Context, userID int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	MarkVerified(ctx context.Context, userID int64, mtime int64) error
	UpdateProfile(ctx context.Context, userID int64, update model.UserProfileUpdate, passwordHash string, mtime int64) error
	SetCapability(ctx context.Context, userID int64, capability model.Capability, value bool, mtime int64) error
	Delete(ctx context.Context, userID int64) error
	BulkDelete(ctx context.Context, userIDs []int64) (int64, error)
}

type CampaignStore interface {
	Create(ctx context.Context, c *model.ScheduledCampaign) error
	GetByCampaignID(ctx context.Context, campaignID string) (*model.ScheduledCampaign, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]*model.ScheduledCampaign, error)
	DeliverNextDue(ctx context.Context, now int64, exclude []int64, deliver func(ctx context.Context, c *model.ScheduledCampaign) error) (*model.ScheduledCampaign, error)
}

type SubmissionStore interface {
	Create(ctx context.Context, s *model.Submission) error
	ListByCampaign(ctx context.Context, campaignID string) ([]*model.Submission, error)
	List(ctx context.Context, ownerID int64) ([]*model.Submission, error)
	Count(ctx context.Context) (int64, error)
	Aggregate(ctx context.Context, ownerID int64) (*model.AggregatedMetrics, error)
}

type EventStore interface {
	Create(ctx context.Context, e *model.UserEvent) error
	List(ctx context.Context, userID int64) ([]*model.UserEvent, error)
	Get(ctx context.Context, id, userID int64) (*model.UserEvent, error)
	Delete(ctx context.Context, id, userID int64) error
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
	CountByType(ctx context.Context, userID int64) ([]model.EventCount, error)
	CountCredentialCaptures(ctx context.Context) (int64, error)
}

type ActionLogStore interface {
	Create(ctx context.Context, entry *model.ActionLog) error
	CountByAction(ctx context.Context, action string) (int64, error)
}
