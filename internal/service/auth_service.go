package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	mailer "github.com/xxxsen/phishsim/internal/mail"
	"github.com/xxxsen/phishsim/internal/model"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
	"github.com/xxxsen/phishsim/internal/pkg/jwt"
	"github.com/xxxsen/phishsim/internal/pkg/password"
)

const DefaultVerifyTTL = 24 * time.Hour

type RegisterInput struct {
	Username        string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

type AuthService struct {
	users     UserStore
	sender    mailer.Sender
	issuer    *jwt.Issuer
	baseURL   string
	verifyTTL time.Duration
	now       func() time.Time
}

func NewAuthService(users UserStore, sender mailer.Sender, issuer *jwt.Issuer, baseURL string, verifyTTL time.Duration) *AuthService {
	if verifyTTL <= 0 {
		verifyTTL = DefaultVerifyTTL
	}
	return &AuthService{
		users:     users,
		sender:    sender,
		issuer:    issuer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		verifyTTL: verifyTTL,
		now:       time.Now,
	}
}

func validateRegistration(in *RegisterInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if n := len([]rune(in.Username)); n < 3 || n > 30 {
		return appErr.Invalid("username must be between 3 and 30 characters")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || !strings.Contains(in.Email, "@") {
		return appErr.Invalid("invalid email")
	}
	if in.Phone == "" {
		return appErr.Invalid("phone is required")
	}
	if in.Password != in.ConfirmPassword {
		return appErr.Invalid("passwords do not match")
	}
	if !password.IsStrong(in.Password) {
		return appErr.Invalid("password must be at least 8 characters with upper, lower, digit and symbol")
	}
	return nil
}

// Register stores an unverified user and mails the verification link. The
// insert and the mail share one transaction: a mail failure leaves no user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := validateRegistration(&in); err != nil {
		return nil, err
	}
	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &model.User{
		Username:                 in.Username,
		Email:                    in.Email,
		Phone:                    in.Phone,
		PasswordHash:             hash,
		VerificationToken:        newVerificationToken(),
		VerificationTokenExpires: now.Add(s.verifyTTL).Unix(),
		Ctime:                    now.Unix(),
		Mtime:                    now.Unix(),
	}
	err = s.users.Register(ctx, user, func(ctx context.Context) error {
		link := mailer.VerificationLink(s.baseURL, user.VerificationToken)
		if err := s.sender.Send(ctx, mailer.VerificationMessage(user.Email, user.Username, link)); err != nil {
			return fmt.Errorf("send verification mail: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("user registered", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return appErr.Invalid("missing token")
	}
	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return appErr.Invalid("invalid or expired token")
		}
		return err
	}
	now := s.now().Unix()
	if user.VerificationTokenExpires < now {
		return appErr.Invalid("invalid or expired token")
	}
	return s.users.MarkVerified(ctx, user.ID, now)
}

// Login checks the password before the verified flag so an unverified account
// is only disclosed to someone holding its password.
func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, appErr.ErrUnauthorized
		}
		return nil, err
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, appErr.ErrUnauthorized
	}
	if !user.IsVerified {
		return nil, appErr.ErrNotVerified
	}
	access, refresh, err := s.issuer.IssuePair(ClaimsFor(user))
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh mints a new access token from the user's current stored state.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return "", appErr.ErrTokenInvalid
		}
		return "", err
	}
	return s.issuer.IssueAccess(ClaimsFor(user))
}

func ClaimsFor(user *model.User) jwt.Claims {
	return jwt.Claims{
		UserID:           user.ID,
		Email:            user.Email,
		Username:         user.Username,
		IsAdmin:          user.IsAdmin,
		CanStartCrawl:    user.CanStartCrawl,
		CanStartCampaign: user.CanStartCampaign,
	}
}
