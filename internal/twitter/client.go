package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"tweetwatch/internal/models"
)

// Sentinel errors classifying upstream failures. The sweep engine treats all
// of them as "zero new items this sweep" for the affected account; only
// ErrAuthExpired additionally triggers an operator alert.
var (
	ErrUnreachable = errors.New("twitter: upstream unreachable")
	ErrAuthExpired = errors.New("twitter: authentication expired")
	ErrRateLimited = errors.New("twitter: rate limited")
	ErrNotFound    = errors.New("twitter: not found")
)

// Client talks to the X API gateway. One client (and one credential) is shared
// by every guild the bot serves; /config-account replaces the session at
// runtime, so the token is guarded against concurrent sweeps.
type Client struct {
	client  *resty.Client
	baseURL string

	mu    sync.RWMutex
	token string
}

// Ensure Client implements both consumer-facing interfaces
var (
	_ TimelineAPI = (*Client)(nil)
	_ AccountAPI  = (*Client)(nil)
)

type sessionResponse struct {
	Token string `json:"token"`
}

type userResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

type timelineResponse struct {
	Data     []timelineTweet `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
		Media []struct {
			MediaKey    string `json:"media_key"`
			Type        string `json:"type"`
			URL         string `json:"url"`
			ExpandedURL string `json:"expanded_url"`
		} `json:"media"`
	} `json:"includes"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
}

type timelineTweet struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	AuthorID    string `json:"author_id"`
	CreatedAt   string `json:"created_at"`
	Attachments struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
}

// NewClient creates a client against the given API base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "Tweetwatch-Bot/1.0"),
	}
}

// Login opens a session with the shared deployment credential and stores the
// returned token for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"username": username, "password": password}).
		Post(c.baseURL + "/auth/session")

	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return ErrAuthExpired
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: login returned status %d", ErrUnreachable, resp.StatusCode())
	}

	var session sessionResponse
	if err := json.Unmarshal(resp.Body(), &session); err != nil {
		return fmt.Errorf("failed to parse session response: %w", err)
	}

	c.mu.Lock()
	c.token = session.Token
	c.mu.Unlock()

	logrus.Infof("Authenticated against %s as %s", c.baseURL, username)
	return nil
}

// ResolveAccount looks up an account by "@handle" or numeric ID.
func (c *Client) ResolveAccount(ctx context.Context, ref string) (*models.Account, error) {
	var endpoint string
	if strings.HasPrefix(ref, "@") {
		endpoint = fmt.Sprintf("%s/2/users/by/username/%s", c.baseURL, strings.TrimPrefix(ref, "@"))
	} else {
		endpoint = fmt.Sprintf("%s/2/users/%s", c.baseURL, ref)
	}

	resp, err := c.request(ctx).Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if err := classifyStatus(resp.StatusCode()); err != nil {
		return nil, err
	}

	var user userResponse
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}
	if user.Data.ID == "" {
		return nil, ErrNotFound
	}

	return &models.Account{
		ID:          user.Data.ID,
		Handle:      user.Data.Username,
		DisplayName: user.Data.Name,
	}, nil
}

// FetchTimeline returns up to count most recent tweets for the account,
// newest first, with media attachments resolved.
func (c *Client) FetchTimeline(ctx context.Context, accountID string, count int) ([]models.Tweet, error) {
	endpoint := fmt.Sprintf(
		"%s/2/users/%s/tweets?max_results=%d&tweet.fields=created_at,attachments&expansions=author_id,attachments.media_keys&media.fields=type,url,expanded_url&user.fields=username",
		c.baseURL, accountID, count)

	logrus.Debugf("Fetching timeline for account %s (count=%d)", accountID, count)

	resp, err := c.request(ctx).Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if err := classifyStatus(resp.StatusCode()); err != nil {
		return nil, err
	}

	var timeline timelineResponse
	if err := json.Unmarshal(resp.Body(), &timeline); err != nil {
		return nil, fmt.Errorf("failed to parse timeline response: %w", err)
	}

	handles := make(map[string]string, len(timeline.Includes.Users))
	for _, u := range timeline.Includes.Users {
		handles[u.ID] = u.Username
	}

	media := make(map[string]models.Media, len(timeline.Includes.Media))
	for _, m := range timeline.Includes.Media {
		media[m.MediaKey] = models.Media{
			Kind:        m.Type,
			URL:         m.URL,
			ExpandedURL: m.ExpandedURL,
		}
	}

	tweets := make([]models.Tweet, 0, len(timeline.Data))
	for _, raw := range timeline.Data {
		createdAt, err := time.Parse(time.RFC3339, raw.CreatedAt)
		if err != nil {
			logrus.Errorf("Failed to parse tweet %s timestamp %q: %v", raw.ID, raw.CreatedAt, err)
			createdAt = time.Time{}
		}

		tweet := models.Tweet{
			ID:           raw.ID,
			AuthorID:     raw.AuthorID,
			AuthorHandle: handles[raw.AuthorID],
			Text:         raw.Text,
			CreatedAt:    createdAt,
		}

		for _, key := range raw.Attachments.MediaKeys {
			if m, ok := media[key]; ok {
				tweet.Media = append(tweet.Media, m)
			}
		}

		tweets = append(tweets, tweet)
	}

	return tweets, nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	req := c.client.R().SetContext(ctx)
	if token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

func classifyStatus(status int) error {
	switch {
	case status == 200:
		return nil
	case status == 401 || status == 403:
		return ErrAuthExpired
	case status == 404:
		return ErrNotFound
	case status == 429:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: upstream returned status %d", ErrUnreachable, status)
	}
}
