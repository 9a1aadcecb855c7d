package job

import (
	"context"

	"github.com/xxxsen/phishsim/internal/service"
)

type CampaignDeliverer interface {
	DeliverDue(ctx context.Context) (service.DeliveryReport, error)
}

// CampaignDeliveryJob is one poller tick: deliver every campaign that is due.
type CampaignDeliveryJob struct {
	deliverer CampaignDeliverer
}

func NewCampaignDeliveryJob(deliverer CampaignDeliverer) *CampaignDeliveryJob {
	return &CampaignDeliveryJob{deliverer: deliverer}
}

func (j *CampaignDeliveryJob) Name() string {
	return "campaign_delivery"
}

func (j *CampaignDeliveryJob) Run(ctx context.Context) error {
	if j.deliverer == nil {
		return nil
	}
	_, err := j.deliverer.DeliverDue(ctx)
	return err
}
