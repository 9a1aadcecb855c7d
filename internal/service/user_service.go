package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/xxxsen/phishsim/internal/model"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
	"github.com/xxxsen/phishsim/internal/pkg/password"
	"github.com/xxxsen/phishsim/internal/pkg/timeutil"
)

type ProfileInput struct {
	Username *string
	Email    *string
	Phone    *string
	Password *string
}

type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*model.User, error) {
	update := model.UserProfileUpdate{}
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		if n := len([]rune(v)); n < 3 || n > 30 {
			return nil, appErr.Invalid("username must be between 3 and 30 characters")
		}
		update.Username = &v
	}
	if in.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*in.Email))
		if _, err := mail.ParseAddress(v); err != nil {
			return nil, appErr.Invalid("invalid email")
		}
		update.Email = &v
	}
	if in.Phone != nil {
		v := strings.TrimSpace(*in.Phone)
		if v == "" {
			return nil, appErr.Invalid("phone is required")
		}
		update.Phone = &v
	}
	hash := ""
	if in.Password != nil && *in.Password != "" {
		if !password.IsStrong(*in.Password) {
			return nil, appErr.Invalid("password must be at least 8 characters with upper, lower, digit and symbol")
		}
		var err error
		if hash, err = password.Hash(*in.Password); err != nil {
			return nil, err
		}
	}
	if err := s.users.UpdateProfile(ctx, userID, update, hash, timeutil.NowUnix()); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}
