package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"birdbot/internal/utils"
)

const defaultBaseURL = "https://www.reddit.com"

// Client fetches random submissions from a single subreddit.
// BaseURL is overridable for tests.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	Subreddit string
}

func NewClient(httpClient *http.Client, subreddit string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTP: httpClient, BaseURL: defaultBaseURL, Subreddit: subreddit}
}

func (c *Client) base() string {
	if c.BaseURL == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

// RandomPost returns the content URL of one random submission.
// Any non-2xx status fails the call; there is no retry here.
func (c *Client) RandomPost(ctx context.Context) (string, error) {
	if c.Subreddit == "" {
		return "", errors.New("subreddit missing")
	}

	endpoint := fmt.Sprintf("%s/r/%s/random.json", c.base(), c.Subreddit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("reddit random status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// random.json wraps the submission in an array of listings; the post
	// itself is the first child of the first listing.
	var listings []struct {
		Data struct {
			Children []struct {
				Data struct {
					URL string `json:"url"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listings); err != nil {
		return "", fmt.Errorf("reddit random decode: %w", err)
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return "", errors.New("reddit random returned no submissions")
	}

	url := listings[0].Data.Children[0].Data.URL
	utils.Debug("reddit random post", "subreddit", c.Subreddit, "url", url)
	return url, nil
}
