package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/bakehouse/internal/config"
	"github.com/example/bakehouse/internal/models"
)

var (
	// ErrSocialTokenRejected means the provider did not vouch for the token.
	ErrSocialTokenRejected = errors.New("social token rejected")
	// ErrSocialNotConfigured means no client or app id is set for the provider.
	ErrSocialNotConfigured = errors.New("social provider is not configured")
)

// SocialIdentity is what a provider tells us about the signed-in person.
type SocialIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// SocialVerifier resolves a provider token into a verified identity.
type SocialVerifier interface {
	Verify(ctx context.Context, provider, token string) (SocialIdentity, error)
}

// SocialService verifies Google ID tokens and Facebook access tokens by asking
// the issuing provider.
type SocialService struct {
	googleClientID    string
	googleURL         string
	facebookURL       string
	facebookAppID     string
	facebookAppSecret string
	httpClient        *http.Client
}

func NewSocialService(cfg config.SocialConfig) *SocialService {
	return &SocialService{
		googleClientID:    cfg.GoogleClientID,
		googleURL:         strings.TrimRight(cfg.GoogleTokenInfoURL, "/"),
		facebookURL:       strings.TrimRight(cfg.FacebookGraphURL, "/"),
		facebookAppID:     cfg.FacebookAppID,
		facebookAppSecret: cfg.FacebookAppSecret,
		httpClient:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SocialService) Verify(ctx context.Context, provider, token string) (SocialIdentity, error) {
	switch provider {
	case models.ProviderGoogle:
		return s.verifyGoogle(ctx, token)
	case models.ProviderFacebook:
		return s.verifyFacebook(ctx, token)
	default:
		return SocialIdentity{}, fmt.Errorf("unsupported provider %q", provider)
	}
}

type googleTokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
}

// verifyGoogle accepts only ID tokens minted for the configured client.
func (s *SocialService) verifyGoogle(ctx context.Context, idToken string) (SocialIdentity, error) {
	if s.googleClientID == "" {
		return SocialIdentity{}, ErrSocialNotConfigured
	}

	var info googleTokenInfo
	if err := s.getJSON(ctx, s.googleURL+"?id_token="+url.QueryEscape(idToken), &info); err != nil {
		return SocialIdentity{}, err
	}

	if info.Aud != s.googleClientID {
		return SocialIdentity{}, ErrSocialTokenRejected
	}
	if info.Email == "" || info.EmailVerified != "true" {
		return SocialIdentity{}, ErrSocialTokenRejected
	}

	return SocialIdentity{
		Provider: models.ProviderGoogle,
		Subject:  info.Sub,
		Email:    strings.ToLower(info.Email),
		Name:     info.Name,
	}, nil
}

type facebookMe struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type facebookDebugToken struct {
	Data struct {
		AppID   string `json:"app_id"`
		UserID  string `json:"user_id"`
		IsValid bool   `json:"is_valid"`
	} `json:"data"`
}

// verifyFacebook checks through debug_token that the access token was issued
// to the configured app before reading the profile it belongs to.
func (s *SocialService) verifyFacebook(ctx context.Context, accessToken string) (SocialIdentity, error) {
	if s.facebookAppID == "" || s.facebookAppSecret == "" {
		return SocialIdentity{}, ErrSocialNotConfigured
	}

	var debug facebookDebugToken
	debugURL := s.facebookURL + "/debug_token?input_token=" + url.QueryEscape(accessToken) +
		"&access_token=" + url.QueryEscape(s.facebookAppID+"|"+s.facebookAppSecret)
	if err := s.getJSON(ctx, debugURL, &debug); err != nil {
		return SocialIdentity{}, err
	}
	if !debug.Data.IsValid || debug.Data.AppID != s.facebookAppID {
		return SocialIdentity{}, ErrSocialTokenRejected
	}

	var me facebookMe
	endpoint := s.facebookURL + "/me?fields=id,name,email&access_token=" + url.QueryEscape(accessToken)
	if err := s.getJSON(ctx, endpoint, &me); err != nil {
		return SocialIdentity{}, err
	}

	if me.ID == "" || me.ID != debug.Data.UserID || me.Email == "" {
		return SocialIdentity{}, ErrSocialTokenRejected
	}

	return SocialIdentity{
		Provider: models.ProviderFacebook,
		Subject:  me.ID,
		Email:    strings.ToLower(me.Email),
		Name:     me.Name,
	}, nil
}

func (s *SocialService) getJSON(ctx context.Context, endpoint string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("social provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		return ErrSocialTokenRejected
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("social provider returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}
