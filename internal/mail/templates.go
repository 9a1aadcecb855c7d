package mail

import (
	"fmt"
	"net/url"
)

// CampaignLink builds the decoy page link carried by a campaign mail.
func CampaignLink(baseURL, campaignID, campaignType string) string {
	q := url.Values{}
	q.Set("campaignId", campaignID)
	q.Set("type", campaignType)
	return baseURL + "/fake-page?" + q.Encode()
}

func CampaignMessage(subject string, to []string, link string) *Message {
	body := fmt.Sprintf("Bonjour,\n\nVous avez été inscrit à une simulation de phishing.\n\n[Cliquez ici pour participer](%s)\n\nOu copiez ce lien : %s\n", link, link)
	return &Message{To: to, Subject: subject, Markdown: body}
}

func VerificationLink(baseURL, token string) string {
	return baseURL + "/verify-email?token=" + url.QueryEscape(token)
}

func VerificationMessage(to, username, link string) *Message {
	body := fmt.Sprintf("Bonjour %s,\n\nMerci pour votre inscription. Confirmez votre adresse email :\n\n[Vérifier mon email](%s)\n\nCe lien expire dans 24 heures.\n", username, link)
	return &Message{To: []string{to}, Subject: "Vérifiez votre adresse email", Markdown: body}
}
