package jwt

import (
	"errors"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	appErr "github.com/xxxsen/phishsim/internal/pkg/errors"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the access token payload. Capability flags are a snapshot taken at
// issue time and are never used for authorization.
type Claims struct {
	UserID           int64  `json:"user_id"`
	Email            string `json:"email,omitempty"`
	Username         string `json:"username,omitempty"`
	IsAdmin          bool   `json:"is_admin"`
	CanStartCrawl    bool   `json:"can_start_crawl"`
	CanStartCampaign bool   `json:"can_start_campaign"`
	jwtlib.RegisteredClaims
}

type RefreshClaims struct {
	UserID int64 `json:"user_id"`
	jwtlib.RegisteredClaims
}

type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

type Option func(*Issuer)

func WithTTL(access, refresh time.Duration) Option {
	return func(i *Issuer) {
		if access > 0 {
			i.accessTTL = access
		}
		if refresh > 0 {
			i.refreshTTL = refresh
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

func NewIssuer(accessSecret, refreshSecret []byte, opts ...Option) *Issuer {
	i := &Issuer{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     DefaultAccessTTL,
		refreshTTL:    DefaultRefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Issuer) IssueAccess(claims Claims) (string, error) {
	now := i.now()
	claims.RegisteredClaims = jwtlib.RegisteredClaims{
		Subject:   strconv.FormatInt(claims.UserID, 10),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(i.accessTTL)),
		IssuedAt:  jwtlib.NewNumericDate(now),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.accessSecret)
}

func (i *Issuer) IssueRefresh(userID int64) (string, error) {
	now := i.now()
	claims := RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(i.refreshTTL)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.refreshSecret)
}

// IssuePair returns an access token and a refresh token for the same user.
func (i *Issuer) IssuePair(claims Claims) (string, string, error) {
	access, err := i.IssueAccess(claims)
	if err != nil {
		return "", "", err
	}
	refresh, err := i.IssueRefresh(claims.UserID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (i *Issuer) VerifyAccess(token string) (*Claims, error) {
	claims := &Claims{}
	if err := i.parse(token, claims, i.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *Issuer) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(token, claims, i.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// parse reports ErrTokenExpired for any token whose exp is in the past, even
// when its signature does not verify.
func (i *Issuer) parse(token string, claims jwtlib.Claims, secret []byte) error {
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		if t.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwtlib.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) || i.expired(claims) {
			return appErr.ErrTokenExpired
		}
		return appErr.ErrTokenInvalid
	}
	if !parsed.Valid {
		return appErr.ErrTokenInvalid
	}
	return nil
}

func (i *Issuer) expired(claims jwtlib.Claims) bool {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !i.now().Before(exp.Time)
}
