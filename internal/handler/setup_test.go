package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/phishsim/internal/handler"
	mailer "github.com/xxxsen/phishsim/internal/mail"
	"github.com/xxxsen/phishsim/internal/middleware"
	"github.com/xxxsen/phishsim/internal/model"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
	"github.com/xxxsen/phishsim/internal/pkg/jwt"
	"github.com/xxxsen/phishsim/internal/service"
)

type userStore struct {
	mu    sync.Mutex
	users []*model.User
}

func (s *userStore) Register(ctx context.Context, user *model.User, afterInsert func(ctx context.Context) error) error {
	s.mu.Lock()
	var conflicts []string
	for _, u := range s.users {
		if u.Email == user.Email {
			conflicts = append(conflicts, "email")
		}
		if u.Username == user.Username {
			conflicts = append(conflicts, "username")
		}
		if u.Phone == user.Phone {
			conflicts = append(conflicts, "phone")
		}
	}
	if len(conflicts) > 0 {
		s.mu.Unlock()
		return &appErr.ConflictError{Fields: conflicts}
	}
	user.ID = int64(len(s.users) + 1)
	cp := *user
	s.users = append(s.users, &cp)
	s.mu.Unlock()
	if afterInsert == nil {
		return nil
	}
	if err := afterInsert(ctx); err != nil {
		s.mu.Lock()
		s.users = s.users[:len(s.users)-1]
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *userStore) find(match func(*model.User) bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (s *userStore) GetByID(_ context.Context, userID int64) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.ID == userID })
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return u.Email == email })
}

func (s *userStore) GetByVerificationToken(_ context.Context, token string) (*model.User, error) {
	return s.find(func(u *model.User) bool { return token != "" && u.VerificationToken == token })
}

func (s *userStore) List(_ context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (s *userStore) update(userID int64, fn func(*model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == userID {
			fn(u)
			return nil
		}
	}
	return appErr.ErrNotFound
}

func (s *userStore) MarkVerified(_ context.Context, userID int64, mtime int64) error {
	return s.update(userID, func(u *model.User) {
		u.IsVerified = true
		u.VerificationToken = ""
		u.Mtime = mtime
	})
}

func (s *userStore) UpdateProfile(_ context.Context, userID int64, update model.UserProfileUpdate, passwordHash string, mtime int64) error {
	return s.update(userID, func(u *model.User) {
		if update.Username != nil {
			u.Username = *update.Username
		}
		if update.Email != nil {
			u.Email = *update.Email
		}
		if update.Phone != nil {
			u.Phone = *update.Phone
		}
		if passwordHash != "" {
			u.PasswordHash = passwordHash
		}
		u.Mtime = mtime
	})
}

func (s *userStore) SetCapability(_ context.Context, userID int64, capability model.Capability, value bool, mtime int64) error {
	return s.update(userID, func(u *model.User) {
		switch capability {
		case model.CapabilityStartCrawl:
			u.CanStartCrawl = value
		case model.CapabilityStartCampaign:
			u.CanStartCampaign = value
		}
		u.Mtime = mtime
	})
}

func (s *userStore) Delete(_ context.Context, userID int64) error {
	_, err := s.BulkDelete(context.Background(), []int64{userID})
	return err
}

func (s *userStore) BulkDelete(_ context.Context, userIDs []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := map[int64]bool{}
	for _, id := range userIDs {
		drop[id] = true
	}
	kept := s.users[:0]
	var n int64
	for _, u := range s.users {
		if drop[u.ID] {
			n++
			continue
		}
		kept = append(kept, u)
	}
	s.users = kept
	if n == 0 {
		return 0, appErr.ErrNotFound
	}
	return n, nil
}

type submissionStore struct {
	mu    sync.Mutex
	items []*model.Submission
}

func (s *submissionStore) Create(_ context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = int64(len(s.items) + 1)
	cp := *sub
	s.items = append(s.items, &cp)
	return nil
}

func (s *submissionStore) ListByCampaign(_ context.Context, campaignID string) ([]*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Submission{}
	for _, item := range s.items {
		if item.CampaignID == campaignID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *submissionStore) List(_ context.Context, _ int64) ([]*model.Submission, error) {
	return nil, nil
}

func (s *submissionStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.items)), nil
}

func (s *submissionStore) Aggregate(_ context.Context, _ int64) (*model.AggregatedMetrics, error) {
	return &model.AggregatedMetrics{}, nil
}

type outbox struct {
	mu   sync.Mutex
	sent []*mailer.Message
}

func (o *outbox) Send(_ context.Context, msg *mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

type fixture struct {
	router      *gin.Engine
	users       *userStore
	submissions *submissionStore
	issuer      *jwt.Issuer
}

func setupRouter(t *testing.T) *fixture {
	t.Helper()
	return setupRouterWithSender(t, &outbox{})
}

func setupRouterWithSender(t *testing.T, sender mailer.Sender) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := &userStore{}
	submissions := &submissionStore{}
	issuer := jwt.NewIssuer([]byte("access-secret"), []byte("refresh-secret"))
	gate := service.NewAccessService(users)
	campaigns := service.NewCampaignService(nil, gate, sender, "https://sim.test", "subject")
	recorder := service.NewSubmissionService(submissions)

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api"), handler.RouterDeps{
		Auth:        handler.NewAuthHandler(service.NewAuthService(users, sender, issuer, "https://sim.test", 0), service.NewUserService(users)),
		Campaigns:   handler.NewCampaignHandler(campaigns, recorder, gate),
		Submissions: handler.NewSubmissionHandler(recorder),
		Events:      handler.NewEventHandler(service.NewEventService(nil, submissions, nil, gate)),
		Admin:       handler.NewAdminHandler(service.NewAdminService(users)),
		Verifier:    issuer,
		Gate:        gate,
		Limiter:     middleware.NewMemoryLimiter(100, time.Minute),
		RateWindow:  time.Minute,
	})
	return &fixture{router: router, users: users, submissions: submissions, issuer: issuer}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return resp.Code, env
}
