package tomra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/esani/pantportal/internal/config"
)

const dateFormat = time.RFC3339

type ClientParam struct {
	fx.In

	Log    *zap.Logger
	Config config.Config
}

// Client talks to the consumer-sessions API. A fresh access token is
// fetched per query via the client-credentials grant.
type Client struct {
	log     *zap.Logger
	cfg     config.TomraConfig
	BaseURL string
	OAuth   clientcredentials.Config
	http    *http.Client
}

func NewClient(p ClientParam) *Client {
	cfg := p.Config.Tomra
	return &Client{
		log:     p.Log.Named("tomra.client"),
		cfg:     cfg,
		BaseURL: fmt.Sprintf("https://api.%s.tomra.cloud/v1.0", cfg.Env),
		OAuth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("https://auth.%s.tomra.cloud/oauth2/token", cfg.Env),
		},
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// ConsumerSessions fetches every session received in (from, to] for the
// given machine serials, following the pagination cursor until exhausted.
func (c *Client) ConsumerSessions(ctx context.Context, from, to time.Time, serials []string) (*SessionResult, error) {
	token, err := c.OAuth.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch token: %w", err)
	}

	query := url.Values{}
	query.Set("receivedAfter", from.UTC().Format(dateFormat))
	query.Set("receivedBefore", to.UTC().Format(dateFormat))
	if len(serials) > 0 {
		query.Set("serialNumbers", strings.Join(serials, ","))
	}
	collectionURL := c.BaseURL + "/consumer-sessions?" + query.Encode()

	result := &SessionResult{CollectionURL: collectionURL}
	pageURL := collectionURL
	for page := 0; ; page++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("page %d: status %d: %s", page, resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var parsed SessionPage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("page %d: decode: %w", page, err)
		}
		result.Sessions = append(result.Sessions, parsed.Data...)

		if parsed.Next == "" {
			break
		}
		next := query
		next.Set("next", parsed.Next)
		pageURL = c.BaseURL + "/consumer-sessions?" + next.Encode()
	}

	c.log.Debug("fetched consumer sessions",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("sessions", len(result.Sessions)),
	)
	return result, nil
}
