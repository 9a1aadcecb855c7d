package model

const (
	ScheduleImmediate = "immediate"
	ScheduleScheduled = "scheduled"
)

// ScheduledCampaign is a batch of phishing simulation emails. Sent stays nil
// until delivery succeeds and is never cleared afterwards.
type ScheduledCampaign struct {
	ID            int64    `json:"id"`
	CampaignID    string   `json:"campaign_id"`
	TeacherID     int64    `json:"teacher_id"`
	StudentEmails []string `json:"student_emails"`
	CampaignType  string   `json:"campaign_type"`
	Schedule      string   `json:"schedule"`
	ScheduledTime int64    `json:"scheduled_time"`
	Sent          *int64   `json:"sent"`
	Ctime         int64    `json:"ctime"`
}

func (c *ScheduledCampaign) IsSent() bool {
	return c.Sent != nil
}
