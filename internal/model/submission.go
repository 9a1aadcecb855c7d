package model

import "encoding/json"

// Submission is one capture from a simulated phishing page.
type Submission struct {
	ID             int64           `json:"id"`
	CampaignID     string          `json:"campaign_id"`
	CampaignType   string          `json:"campaign_type"`
	Username       string          `json:"username"`
	Password       string          `json:"password"`
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	IPAddress      string          `json:"ip_address"`
	UserAgent      string          `json:"user_agent"`
	AdditionalData json.RawMessage `json:"additional_data"`
	UserID         *int64          `json:"user_id"`
	Ctime          int64           `json:"ctime"`
}
