package model

import "encoding/json"

type UserEvent struct {
	ID             int64           `json:"id"`
	UserID         *int64          `json:"user_id"`
	CampaignID     string          `json:"campaign_id"`
	EventType      string          `json:"event_type"`
	IPAddress      string          `json:"ip_address"`
	UserAgent      string          `json:"user_agent"`
	AdditionalData json.RawMessage `json:"additional_data"`
	Ctime          int64           `json:"ctime"`
}

type ActionLog struct {
	ID      int64           `json:"id"`
	UserID  *int64          `json:"user_id"`
	Action  string          `json:"action"`
	Details json.RawMessage `json:"details"`
	Ctime   int64           `json:"ctime"`
}

type EventCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

type AggregatedMetrics struct {
	TotalEvents int64 `json:"total_events"`
	TotalClicks int64 `json:"total_clicks"`
	TotalInputs int64 `json:"total_inputs"`
}

type Stats struct {
	Labels []string `json:"labels"`
	Values []int64  `json:"values"`
}
