package service

import (
	"context"
	"errors"

	"github.com/xxxsen/phishsim/internal/model"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
	"github.com/xxxsen/phishsim/internal/pkg/jwt"
)

// AccessService answers capability questions from the credential store, so a
// revoked flag takes effect on the next request regardless of issued tokens.
type AccessService struct {
	users UserStore
}

func NewAccessService(users UserStore) *AccessService {
	return &AccessService{users: users}
}

// Authorized evaluates a capability against a token claim set. The result is
// only a hint for clients; server side checks go through Check.
func Authorized(claims *jwt.Claims, capability model.Capability) bool {
	if claims == nil {
		return false
	}
	switch capability {
	case model.CapabilityStartCrawl:
		return claims.CanStartCrawl
	case model.CapabilityStartCampaign:
		return claims.CanStartCampaign
	}
	return false
}

func (s *AccessService) Check(ctx context.Context, userID int64, capability model.Capability) (bool, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Has(capability), nil
}

func (s *AccessService) Require(ctx context.Context, userID int64, capability model.Capability) error {
	ok, err := s.Check(ctx, userID, capability)
	if err != nil {
		return err
	}
	if !ok {
		return appErr.ErrForbidden
	}
	return nil
}

func (s *AccessService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

func (s *AccessService) RequireAdmin(ctx context.Context, userID int64) error {
	ok, err := s.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return appErr.ErrForbidden
	}
	return nil
}

// load maps a vanished user to Unauthorized: the token outlived its subject.
func (s *AccessService) load(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, appErr.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}
