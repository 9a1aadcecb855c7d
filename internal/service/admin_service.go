package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/phishsim/internal/model"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
	"github.com/xxxsen/phishsim/internal/pkg/timeutil"
)

type AdminService struct {
	users UserStore
}

func NewAdminService(users UserStore) *AdminService {
	return &AdminService{users: users}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.users.List(ctx)
}

func (s *AdminService) SetCapability(ctx context.Context, userID int64, capability model.Capability, value bool) error {
	if userID <= 0 {
		return appErr.Invalid("userId is required")
	}
	if err := s.users.SetCapability(ctx, userID, capability, value, timeutil.NowUnix()); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("capability updated",
		zap.Int64("user_id", userID),
		zap.String("capability", string(capability)),
		zap.Bool("value", value),
	)
	return nil
}

func (s *AdminService) DeleteUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return appErr.Invalid("userId is required")
	}
	return s.users.Delete(ctx, userID)
}

func (s *AdminService) BulkDelete(ctx context.Context, userIDs []int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, appErr.Invalid("userIds is required")
	}
	return s.users.BulkDelete(ctx, userIDs)
}
