package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/xxxsen/phishsim/internal/model"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
	"github.com/xxxsen/phishsim/internal/pkg/timeutil"
)

const ActionCrawl = "crawl"

var statLabels = []string{"Campagnes lancées", "Crawls initiés", "Données collectées"}

type TrackInput struct {
	EventType  string
	CampaignID string
	IPAddress  string
	UserAgent  string
	Payload    json.RawMessage
}

type EventList struct {
	Campaigns  []*model.Submission `json:"campaigns"`
	UserEvents []*model.UserEvent  `json:"user_events"`
}

type EventService struct {
	events      EventStore
	submissions SubmissionStore
	logs        ActionLogStore
	gate        *AccessService
}

func NewEventService(events EventStore, submissions SubmissionStore, logs ActionLogStore, gate *AccessService) *EventService {
	return &EventService{events: events, submissions: submissions, logs: logs, gate: gate}
}

// scope returns the owner filter for userID: zero for admins, else userID.
func (s *EventService) scope(ctx context.Context, userID int64) (int64, error) {
	admin, err := s.gate.IsAdmin(ctx, userID)
	if err != nil {
		return 0, err
	}
	if admin {
		return 0, nil
	}
	return userID, nil
}

func (s *EventService) Track(ctx context.Context, userID int64, in TrackInput) (*model.UserEvent, error) {
	eventType := strings.TrimSpace(in.EventType)
	if eventType == "" {
		return nil, appErr.Invalid("eventType is required")
	}
	uid := userID
	event := &model.UserEvent{
		UserID:         &uid,
		CampaignID:     strings.TrimSpace(in.CampaignID),
		EventType:      eventType,
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
		AdditionalData: in.Payload,
		Ctime:          timeutil.NowUnix(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) List(ctx context.Context, userID int64) (*EventList, error) {
	owner, err := s.scope(ctx, userID)
	if err != nil {
		return nil, err
	}
	subs, err := s.submissions.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	events, err := s.events.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &EventList{Campaigns: subs, UserEvents: events}, nil
}

func (s *EventService) Get(ctx context.Context, userID, eventID int64) (*model.UserEvent, error) {
	owner, err := s.scope(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.events.Get(ctx, eventID, owner)
}

func (s *EventService) Delete(ctx context.Context, userID, eventID int64) error {
	owner, err := s.scope(ctx, userID)
	if err != nil {
		return err
	}
	return s.events.Delete(ctx, eventID, owner)
}

// DeleteAll removes the caller's own events. It reports NotFound when there
// was nothing to delete.
func (s *EventService) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	deleted, err := s.events.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, appErr.ErrNotFound
	}
	return deleted, nil
}

// Summary counts events by type for userID; admins get counts across all users.
func (s *EventService) Summary(ctx context.Context, userID int64) (map[string]int64, error) {
	owner, err := s.scope(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.events.CountByType(ctx, owner)
	if err != nil {
		return nil, err
	}
	summary := make(map[string]int64, len(counts))
	for _, c := range counts {
		summary[c.EventType] = c.Count
	}
	return summary, nil
}

func (s *EventService) Aggregated(ctx context.Context, userID int64) (*model.AggregatedMetrics, error) {
	owner, err := s.scope(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.submissions.Aggregate(ctx, owner)
}

func (s *EventService) LogAction(ctx context.Context, userID int64, action string, details json.RawMessage) (*model.ActionLog, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, appErr.Invalid("action is required")
	}
	uid := userID
	entry := &model.ActionLog{UserID: &uid, Action: action, Details: details, Ctime: timeutil.NowUnix()}
	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Stats reports campaigns launched, crawls initiated and collected captures.
func (s *EventService) Stats(ctx context.Context) (*model.Stats, error) {
	campaigns, err := s.logs.CountByAction(ctx, ActionCampaign)
	if err != nil {
		return nil, err
	}
	crawls, err := s.logs.CountByAction(ctx, ActionCrawl)
	if err != nil {
		return nil, err
	}
	submissions, err := s.submissions.Count(ctx)
	if err != nil {
		return nil, err
	}
	captures, err := s.events.CountCredentialCaptures(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Stats{
		Labels: append([]string(nil), statLabels...),
		Values: []int64{campaigns, crawls, submissions + captures},
	}, nil
}
