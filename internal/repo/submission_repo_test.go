package repo_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/phishsim/internal/model"
	"github.com/xxxsen/phishsim/internal/repo"
	"github.com/xxxsen/phishsim/internal/testutil"
)

func TestSubmissionRepoRoundTrip(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	submissions := repo.NewSubmissionRepo(conn)

	sub := &model.Submission{
		CampaignID:     "c1",
		CampaignType:   "bank",
		Username:       "a",
		Password:       "b",
		IPAddress:      "10.0.0.1",
		UserAgent:      "ua",
		AdditionalData: json.RawMessage(`{"totalClicks":3,"totalInputs":2}`),
		Ctime:          1,
	}
	require.NoError(t, submissions.Create(ctx, sub))
	require.NotZero(t, sub.ID)

	items, err := submissions.ListByCampaign(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "a", items[0].Username)
	require.Equal(t, "b", items[0].Password)
	require.Equal(t, "bank", items[0].CampaignType)
	require.Nil(t, items[0].UserID)

	metrics, err := submissions.Aggregate(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, int64(3), metrics.TotalClicks)
	require.Equal(t, int64(2), metrics.TotalInputs)

	count, err := submissions.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestEventRepoScopedToOwner(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	events := repo.NewEventRepo(conn)

	owner := int64(7)
	e := &model.UserEvent{UserID: &owner, EventType: "click", AdditionalData: json.RawMessage(`{"eventType":"click"}`), Ctime: 1}
	require.NoError(t, events.Create(ctx, e))

	_, err := events.Get(ctx, e.ID, 8)
	require.Error(t, err)
	got, err := events.Get(ctx, e.ID, owner)
	require.NoError(t, err)
	require.Equal(t, "click", got.EventType)

	counts, err := events.CountByType(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, []model.EventCount{{EventType: "click", Count: 1}}, counts)

	n, err := events.DeleteByUser(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
