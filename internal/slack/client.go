package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://slack.com"

// Client calls the Slack Web API. BaseURL is overridable for tests.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTP: httpClient, BaseURL: defaultBaseURL}
}

func (c *Client) base() string {
	if c.BaseURL == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

// PostMessage posts text to a channel on behalf of the installed team.
// A non-ok API result is an error carrying the raw response for diagnostics.
func (c *Client) PostMessage(ctx context.Context, botToken, channel, text string) error {
	if botToken == "" {
		return errors.New("bot token missing")
	}
	if channel == "" {
		return errors.New("channel missing")
	}
	if text == "" {
		return errors.New("text missing")
	}

	payload := map[string]any{
		"channel": channel,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/api/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+botToken)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack chat.postMessage status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return fmt.Errorf("slack chat.postMessage decode: %w", err)
	}
	if !decoded.OK {
		return fmt.Errorf("slack chat.postMessage not ok: %s", strings.TrimSpace(string(respBody)))
	}
	return nil
}

type OAuthAccessResponse struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error"`
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
	BotUserID   string `json:"bot_user_id"`
	Team        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
}

// AuthorizeURL builds the provider consent URL the install flow redirects to.
func (c *Client) AuthorizeURL(clientID, redirectURL, scopes, state string) (string, error) {
	if clientID == "" {
		return "", errors.New("clientID is required")
	}
	u, err := url.Parse(c.base() + "/oauth/v2/authorize")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", clientID)
	if scopes != "" {
		q.Set("scope", scopes)
	}
	if redirectURL != "" {
		q.Set("redirect_uri", redirectURL)
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeOAuthCode trades a temporary authorization code for a bot token.
func (c *Client) ExchangeOAuthCode(ctx context.Context, clientID, clientSecret, code, redirectURL string) (OAuthAccessResponse, error) {
	if clientID == "" || clientSecret == "" {
		return OAuthAccessResponse{}, errors.New("client_id and client_secret are required")
	}
	if code == "" {
		return OAuthAccessResponse{}, errors.New("code is required")
	}

	values := url.Values{}
	values.Set("client_id", clientID)
	values.Set("client_secret", clientSecret)
	values.Set("code", code)
	if redirectURL != "" {
		values.Set("redirect_uri", redirectURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/api/oauth.v2.access", strings.NewReader(values.Encode()))
	if err != nil {
		return OAuthAccessResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return OAuthAccessResponse{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return OAuthAccessResponse{}, fmt.Errorf("slack oauth status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded OAuthAccessResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return OAuthAccessResponse{}, err
	}
	if !decoded.OK {
		if decoded.Error == "" {
			decoded.Error = "oauth failed"
		}
		return decoded, errors.New(decoded.Error)
	}
	if decoded.AccessToken == "" {
		return decoded, errors.New("oauth response missing access_token")
	}
	if decoded.Team.ID == "" {
		return decoded, errors.New("oauth response missing team.id")
	}
	return decoded, nil
}

// AppRedirectURL points a freshly installed workspace back at the app.
func (c *Client) AppRedirectURL(appID string) string {
	return c.base() + "/app_redirect?app=" + url.QueryEscape(appID)
}
