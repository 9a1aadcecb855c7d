package model

type User struct {
	ID                       int64  `json:"id"`
	Username                 string `json:"username"`
	Email                    string `json:"email"`
	Phone                    string `json:"phone"`
	PasswordHash             string `json:"-"`
	IsVerified               bool   `json:"is_verified"`
	VerificationToken        string `json:"-"`
	VerificationTokenExpires int64  `json:"-"`
	IsAdmin                  bool   `json:"is_admin"`
	CanStartCrawl            bool   `json:"can_start_crawl"`
	CanStartCampaign         bool   `json:"can_start_campaign"`
	Ctime                    int64  `json:"ctime"`
	Mtime                    int64  `json:"mtime"`
}

// Capability names a per-user permission flag.
type Capability string

const (
	CapabilityStartCrawl    Capability = "can_start_crawl"
	CapabilityStartCampaign Capability = "can_start_campaign"
)

func (u *User) Has(cap Capability) bool {
	switch cap {
	case CapabilityStartCrawl:
		return u.CanStartCrawl
	case CapabilityStartCampaign:
		return u.CanStartCampaign
	}
	return false
}

// UserProfileUpdate holds the fields a user may change on their own profile.
type UserProfileUpdate struct {
	Username *string
	Email    *string
	Phone    *string
}
