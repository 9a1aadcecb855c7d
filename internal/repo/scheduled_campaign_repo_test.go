package repo_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/phishsim/internal/model"
	"github.com/xxxsen/phishsim/internal/repo"
	"github.com/xxxsen/phishsim/internal/testutil"
)

func newCampaign(id string, at int64) *model.ScheduledCampaign {
	return &model.ScheduledCampaign{
		CampaignID:    id,
		TeacherID:     1,
		StudentEmails: []string{"s1@x.com", "s2@x.com"},
		CampaignType:  "bank",
		Schedule:      model.ScheduleScheduled,
		ScheduledTime: at,
		Ctime:         1,
	}
}

func TestScheduledCampaignCreateAndGet(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	campaigns := repo.NewScheduledCampaignRepo(conn)

	require.NoError(t, campaigns.Create(ctx, newCampaign("c1", 100)))
	got, err := campaigns.GetByCampaignID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, []string{"s1@x.com", "s2@x.com"}, got.StudentEmails)
	require.False(t, got.IsSent())

	list, err := campaigns.ListByTeacher(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	list, err = campaigns.ListByTeacher(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestDeliverNextDueMarksSent(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	campaigns := repo.NewScheduledCampaignRepo(conn)

	require.NoError(t, campaigns.Create(ctx, newCampaign("due", 100)))
	require.NoError(t, campaigns.Create(ctx, newCampaign("later", 500)))

	claimed, err := campaigns.DeliverNextDue(ctx, 200, nil, func(context.Context, *model.ScheduledCampaign) error { return nil })
	require.NoError(t, err)
	require.Equal(t, "due", claimed.CampaignID)

	got, err := campaigns.GetByCampaignID(ctx, "due")
	require.NoError(t, err)
	require.NotNil(t, got.Sent)
	require.Equal(t, int64(200), *got.Sent)

	claimed, err = campaigns.DeliverNextDue(ctx, 200, nil, func(context.Context, *model.ScheduledCampaign) error { return nil })
	require.NoError(t, err)
	require.Nil(t, claimed)
}

func TestDeliverNextDueFailureLeavesRowUnsent(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	campaigns := repo.NewScheduledCampaignRepo(conn)

	require.NoError(t, campaigns.Create(ctx, newCampaign("c1", 100)))
	boom := errors.New("smtp down")
	claimed, err := campaigns.DeliverNextDue(ctx, 200, nil, func(context.Context, *model.ScheduledCampaign) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NotNil(t, claimed)

	got, err := campaigns.GetByCampaignID(ctx, "c1")
	require.NoError(t, err)
	require.Nil(t, got.Sent)

	claimed, err = campaigns.DeliverNextDue(ctx, 200, []int64{got.ID}, func(context.Context, *model.ScheduledCampaign) error { return nil })
	require.NoError(t, err)
	require.Nil(t, claimed)
}

func TestDeliverNextDueConcurrentPollersSendOnce(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	campaigns := repo.NewScheduledCampaignRepo(conn)
	require.NoError(t, campaigns.Create(ctx, newCampaign("c1", 100)))

	var sends int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = campaigns.DeliverNextDue(ctx, 200, nil, func(context.Context, *model.ScheduledCampaign) error {
				atomic.AddInt32(&sends, 1)
				return nil
			})
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), atomic.LoadInt32(&sends))
}
