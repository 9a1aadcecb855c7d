package service

import "github.com/google/uuid"

func newCampaignID() string {
	return uuid.NewString()
}

func newVerificationToken() string {
	return uuid.NewString()
}
