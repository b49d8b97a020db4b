package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/partyof4/platform/pkg/common/logger"
	"golang.org/x/oauth2"
)

// MessengerAuthenticator validates access tokens issued by the messenger
// login widget the registration flow signs in with.
type MessengerAuthenticator struct {
	config *oauth2.Config
	issuer string
	client *http.Client
}

func NewMessengerAuthenticator(issuer, clientID, clientSecret string) (*MessengerAuthenticator, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("messenger login configuration incomplete")
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/oauth2/v2.1/authorize", issuer),
			TokenURL: fmt.Sprintf("%s/oauth2/v2.1/token", issuer),
		},
		Scopes: []string{"openid", "profile"},
	}

	return &MessengerAuthenticator{
		config: config,
		issuer: issuer,
		client: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

// ValidateToken calls the provider's verify endpoint and returns the token
// claims. The registrant's person_id is the provider subject.
func (a *MessengerAuthenticator) ValidateToken(ctx context.Context, token string) (map[string]interface{}, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	url := fmt.Sprintf("%s/oauth2/v2.1/verify?access_token=%s", a.issuer, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token rejected by provider: %s", resp.Status)
	}

	var claims map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decoding verification response: %w", err)
	}

	return claims, nil
}

// Middleware guards intake endpoints with a bearer token check. When no
// authenticator is configured (local development) requests pass through.
func Middleware(a *MessengerAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token == header || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			if _, err := a.ValidateToken(r.Context(), token); err != nil {
				logger.Log.WithError(err).Warn("token validation failed")
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
