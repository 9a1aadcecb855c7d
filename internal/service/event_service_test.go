package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/phishsim/internal/model"
	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
)

func newEventFixture() (*EventService, *memUserStore, *memActionLogStore, *memSubmissionStore) {
	users := newMemUserStore()
	logs := &memActionLogStore{}
	subs := &memSubmissionStore{}
	return NewEventService(&memEventStore{}, subs, logs, NewAccessService(users)), users, logs, subs
}

func TestEventsScopedToCaller(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := newEventFixture()
	alice := users.add(&model.User{Username: "alice", Email: "a@x.com"})
	bob := users.add(&model.User{Username: "bob", Email: "b@x.com"})
	root := users.add(&model.User{Username: "root", Email: "r@x.com", IsAdmin: true})

	ev, err := svc.Track(ctx, alice.ID, TrackInput{EventType: "click", Payload: json.RawMessage(`{"eventType":"click"}`)})
	require.NoError(t, err)
	_, err = svc.Track(ctx, alice.ID, TrackInput{EventType: "input"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob.ID, ev.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	got, err := svc.Get(ctx, root.ID, ev.ID)
	require.NoError(t, err)
	require.Equal(t, "click", got.EventType)

	summary, err := svc.Summary(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"click": 1, "input": 1}, summary)

	list, err := svc.List(ctx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, list.UserEvents)

	require.ErrorIs(t, svc.Delete(ctx, bob.ID, ev.ID), appErr.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, alice.ID, ev.ID))

	deleted, err := svc.DeleteAll(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
	_, err = svc.DeleteAll(ctx, alice.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestSummaryAdminSeesAllUsers(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := newEventFixture()
	alice := users.add(&model.User{Username: "alice", Email: "a@x.com"})
	bob := users.add(&model.User{Username: "bob", Email: "b@x.com"})
	root := users.add(&model.User{Username: "root", Email: "r@x.com", IsAdmin: true})

	for _, in := range []struct {
		user      int64
		eventType string
	}{{alice.ID, "click"}, {alice.ID, "click"}, {bob.ID, "click"}, {bob.ID, "input"}} {
		_, err := svc.Track(ctx, in.user, TrackInput{EventType: in.eventType})
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"click": 1, "input": 1}, summary)

	summary, err = svc.Summary(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"click": 3, "input": 1}, summary)
}

func TestTrackRequiresEventType(t *testing.T) {
	svc, users, _, _ := newEventFixture()
	u := users.add(&model.User{Username: "u", Email: "u@x.com"})
	_, err := svc.Track(context.Background(), u.ID, TrackInput{EventType: "  "})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestStatsCountsActionsAndCaptures(t *testing.T) {
	ctx := context.Background()
	svc, users, logs, subs := newEventFixture()
	u := users.add(&model.User{Username: "u", Email: "u@x.com"})

	_, err := svc.LogAction(ctx, u.ID, ActionCrawl, json.RawMessage(`{"url":"https://bank.test"}`))
	require.NoError(t, err)
	require.NoError(t, logs.Create(ctx, &model.ActionLog{Action: ActionCampaign}))
	require.NoError(t, logs.Create(ctx, &model.ActionLog{Action: ActionCampaign}))
	require.NoError(t, subs.Create(ctx, &model.Submission{CampaignID: "c1", CampaignType: "bank"}))

	_, err = svc.LogAction(ctx, u.ID, "", nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, statLabels, stats.Labels)
	require.Equal(t, []int64{2, 1, 1}, stats.Values)
}
