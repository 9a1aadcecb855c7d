package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	mailer "github.com/xxxsen/phishsim/internal/mail"
	"github.com/xxxsen/phishsim/internal/model"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
)

type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[int64]*model.User{}}
}

func (m *memUserStore) Register(ctx context.Context, user *model.User, afterInsert func(ctx context.Context) error) error {
	m.mu.Lock()
	var conflicts []string
	for _, field := range []string{"email", "username", "phone"} {
		for _, u := range m.users {
			if (field == "email" && u.Email == user.Email) ||
				(field == "username" && u.Username == user.Username) ||
				(field == "phone" && u.Phone == user.Phone) {
				conflicts = append(conflicts, field)
				break
			}
		}
	}
	if len(conflicts) > 0 {
		m.mu.Unlock()
		return &appErr.ConflictError{Fields: conflicts}
	}
	m.nextID++
	user.ID = m.nextID
	cp := *user
	m.users[user.ID] = &cp
	m.mu.Unlock()
	if afterInsert != nil {
		if err := afterInsert(ctx); err != nil {
			m.mu.Lock()
			delete(m.users, user.ID)
			m.mu.Unlock()
			return err
		}
	}
	return nil
}

func (m *memUserStore) find(match func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *memUserStore) GetByID(_ context.Context, userID int64) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == userID })
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == email })
}

func (m *memUserStore) GetByVerificationToken(_ context.Context, token string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return token != "" && u.VerificationToken == token })
}

func (m *memUserStore) List(_ context.Context) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUserStore) update(userID int64, fn func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return appErr.ErrNotFound
	}
	fn(u)
	return nil
}

func (m *memUserStore) MarkVerified(_ context.Context, userID int64, mtime int64) error {
	return m.update(userID, func(u *model.User) {
		u.IsVerified = true
		u.VerificationToken = ""
		u.VerificationTokenExpires = 0
		u.Mtime = mtime
	})
}

func (m *memUserStore) UpdateProfile(_ context.Context, userID int64, update model.UserProfileUpdate, passwordHash string, mtime int64) error {
	return m.update(userID, func(u *model.User) {
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

func (m *memUserStore) SetCapability(_ context.Context, userID int64, capability model.Capability, value bool, mtime int64) error {
	return m.update(userID, func(u *model.User) {
		switch capability {
		case model.CapabilityStartCrawl:
			u.CanStartCrawl = value
		case model.CapabilityStartCampaign:
			u.CanStartCampaign = value
		}
		u.Mtime = mtime
	})
}

func (m *memUserStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return appErr.ErrNotFound
	}
	delete(m.users, userID)
	return nil
}

func (m *memUserStore) BulkDelete(_ context.Context, userIDs []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range userIDs {
		if _, ok := m.users[id]; ok {
			delete(m.users, id)
			n++
		}
	}
	return n, nil
}

func (m *memUserStore) add(u *model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.users[u.ID] = &cp
	return u
}

type memCampaignStore struct {
	mu        sync.Mutex
	nextID    int64
	campaigns []*model.ScheduledCampaign
}

func (m *memCampaignStore) Create(_ context.Context, c *model.ScheduledCampaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.campaigns = append(m.campaigns, &cp)
	return nil
}

func (m *memCampaignStore) GetByCampaignID(_ context.Context, campaignID string) (*model.ScheduledCampaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.campaigns {
		if c.CampaignID == campaignID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *memCampaignStore) ListByTeacher(_ context.Context, teacherID int64) ([]*model.ScheduledCampaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ScheduledCampaign, 0)
	for _, c := range m.campaigns {
		if teacherID == 0 || c.TeacherID == teacherID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// DeliverNextDue holds the store lock for the whole claim, which gives the
// same exclusivity a row lock gives in postgres.
func (m *memCampaignStore) DeliverNextDue(ctx context.Context, now int64, exclude []int64, deliver func(ctx context.Context, c *model.ScheduledCampaign) error) (*model.ScheduledCampaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	skip := map[int64]bool{}
	for _, id := range exclude {
		skip[id] = true
	}
	for _, c := range m.campaigns {
		if c.Sent != nil || c.ScheduledTime > now || skip[c.ID] {
			continue
		}
		cp := *c
		if err := deliver(ctx, &cp); err != nil {
			return &cp, err
		}
		sent := now
		c.Sent = &sent
		cp.Sent = &sent
		return &cp, nil
	}
	return nil, nil
}

type memSubmissionStore struct {
	mu    sync.Mutex
	items []*model.Submission
}

func (m *memSubmissionStore) Create(_ context.Context, s *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = int64(len(m.items) + 1)
	cp := *s
	m.items = append(m.items, &cp)
	return nil
}

func (m *memSubmissionStore) ListByCampaign(_ context.Context, campaignID string) ([]*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Submission, 0)
	for _, s := range m.items {
		if s.CampaignID == campaignID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSubmissionStore) List(_ context.Context, ownerID int64) ([]*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Submission, 0)
	for _, s := range m.items {
		if ownerID == 0 || (s.UserID != nil && *s.UserID == ownerID) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSubmissionStore) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.items)), nil
}

func (m *memSubmissionStore) Aggregate(ctx context.Context, ownerID int64) (*model.AggregatedMetrics, error) {
	items, _ := m.List(ctx, ownerID)
	return &model.AggregatedMetrics{TotalEvents: int64(len(items))}, nil
}

type memEventStore struct {
	mu     sync.Mutex
	nextID int64
	items  []*model.UserEvent
}

func owned(e *model.UserEvent, userID int64) bool {
	return userID == 0 || (e.UserID != nil && *e.UserID == userID)
}

func (m *memEventStore) Create(_ context.Context, e *model.UserEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.items = append(m.items, &cp)
	return nil
}

func (m *memEventStore) List(_ context.Context, userID int64) ([]*model.UserEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.UserEvent, 0)
	for _, e := range m.items {
		if owned(e, userID) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEventStore) Get(_ context.Context, id, userID int64) (*model.UserEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.items {
		if e.ID == id && owned(e, userID) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *memEventStore) Delete(_ context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.items {
		if e.ID == id && owned(e, userID) {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return appErr.ErrNotFound
}

func (m *memEventStore) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	var n int64
	for _, e := range m.items {
		if e.UserID != nil && *e.UserID == userID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.items = kept
	return n, nil
}

func (m *memEventStore) CountByType(_ context.Context, userID int64) ([]model.EventCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int64{}
	for _, e := range m.items {
		if owned(e, userID) {
			counts[e.EventType]++
		}
	}
	out := make([]model.EventCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, model.EventCount{EventType: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventType < out[j].EventType })
	return out, nil
}

func (m *memEventStore) CountCredentialCaptures(_ context.Context) (int64, error) {
	return 0, nil
}

type memActionLogStore struct {
	mu    sync.Mutex
	items []*model.ActionLog
}

func (m *memActionLogStore) Create(_ context.Context, entry *model.ActionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.items) + 1)
	m.items = append(m.items, entry)
	return nil
}

func (m *memActionLogStore) CountByAction(_ context.Context, action string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.items {
		if e.Action == action {
			n++
		}
	}
	return n, nil
}

var errTransport = errors.New("smtp: connection refused")

type recordingSender struct {
	mu   sync.Mutex
	sent []*mailer.Message
	fail bool
}

func (s *recordingSender) Send(_ context.Context, msg *mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errTransport
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *recordingSender) setFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = v
}

func (s *recordingSender) last() *mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return nil
	}
	return s.sent[len(s.sent)-1]
}
