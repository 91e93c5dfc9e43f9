// Package social handles the OAuth2 side of social login: building the
// provider redirect URL and exchanging the callback code for a verified
// (provider, subject id, email) triple. Everything past that point is the
// session service's business.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/yandex"
)

const (
	ProviderGoogle = "google"
	ProviderYandex = "yandex"
)

// UserData is the externally-verified identity triple plus the raw userinfo
// payload, kept for the social account link row.
type UserData struct {
	SocialID      string
	SocialService string
	Email         string
	Raw           json.RawMessage
}

type provider struct {
	config      *oauth2.Config
	userinfoURL string
	extract     func(raw []byte) (UserData, error)
}

// Registry maps provider names to their OAuth2 configuration.
type Registry struct {
	providers map[string]*provider
}

type Credentials struct {
	GoogleClientID     string
	GoogleClientSecret string
	YandexClientID     string
	YandexClientSecret string
	RedirectBase       string
}

func NewRegistry(creds Credentials) *Registry {
	r := &Registry{providers: make(map[string]*provider)}

	if creds.GoogleClientID != "" {
		r.providers[ProviderGoogle] = &provider{
			config: &oauth2.Config{
				ClientID:     creds.GoogleClientID,
				ClientSecret: creds.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				RedirectURL:  creds.RedirectBase + "/api/v1/users/social/login/" + ProviderGoogle,
				Scopes:       []string{"openid", "email", "profile"},
			},
			userinfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
			extract:     extractGoogle,
		}
	}

	if creds.YandexClientID != "" {
		r.providers[ProviderYandex] = &provider{
			config: &oauth2.Config{
				ClientID:     creds.YandexClientID,
				ClientSecret: creds.YandexClientSecret,
				Endpoint:     yandex.Endpoint,
				RedirectURL:  creds.RedirectBase + "/api/v1/users/social/login/" + ProviderYandex,
				Scopes:       []string{"login:email", "login:info"},
			},
			userinfoURL: "https://login.yandex.ru/info?format=json",
			extract:     extractYandex,
		}
	}

	return r
}

// Known reports whether the provider name is configured.
func (r *Registry) Known(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// AuthCodeURL returns the provider redirect URL for the register flow.
func (r *Registry) AuthCodeURL(name, state string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("unknown provider %q", name)
	}
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange trades the callback code for tokens and fetches the provider's
// userinfo document.
func (r *Registry) Exchange(ctx context.Context, name, code string) (UserData, error) {
	p, ok := r.providers[name]
	if !ok {
		return UserData{}, fmt.Errorf("unknown provider %q", name)
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return UserData{}, fmt.Errorf("code exchange with %s failed: %w", name, err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.userinfoURL)
	if err != nil {
		return UserData{}, fmt.Errorf("userinfo fetch from %s failed: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UserData{}, fmt.Errorf("userinfo fetch from %s failed: status %d", name, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return UserData{}, fmt.Errorf("userinfo read from %s failed: %w", name, err)
	}
	return p.extract(raw)
}

func extractGoogle(raw []byte) (UserData, error) {
	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return UserData{}, err
	}
	if info.Sub == "" {
		return UserData{}, fmt.Errorf("google userinfo has no subject")
	}
	return UserData{
		SocialID:      info.Sub,
		SocialService: ProviderGoogle,
		Email:         info.Email,
		Raw:           raw,
	}, nil
}

func extractYandex(raw []byte) (UserData, error) {
	var info struct {
		PSUID        string `json:"psuid"`
		ID           string `json:"id"`
		DefaultEmail string `json:"default_email"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return UserData{}, err
	}
	subject := info.PSUID
	if subject == "" {
		subject = info.ID
	}
	if subject == "" {
		return UserData{}, fmt.Errorf("yandex userinfo has no subject")
	}
	return UserData{
		SocialID:      subject,
		SocialService: ProviderYandex,
		Email:         info.DefaultEmail,
		Raw:           raw,
	}, nil
}
