package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FeedItem is one entry of a network's top-level post listing.
type FeedItem struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Subject string `json:"subject"`
}

// Revision is one entry of a post's edit history. The forum delivers
// history most-recent-first.
type Revision struct {
	UID     string    `json:"uid"`
	Anon    string    `json:"anon"`
	Subject string    `json:"subject"`
	Content string    `json:"content"`
	Created time.Time `json:"created"`
}

// Anonymous reports whether the revision was made anonymously. The wire
// value is a string enum where anything other than "no" (or absent) hides
// the author.
func (r Revision) Anonymous() bool {
	return r.Anon != "" && r.Anon != "no"
}

// RawPost is one fetched post with its full revision history and nested
// children (answers, follow-ups, feedback). It is immutable input to the
// walker.
type RawPost struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	UID      string     `json:"uid"`
	Anon     string     `json:"anon"`
	Subject  string     `json:"subject"`
	Content  string     `json:"content"`
	Created  time.Time  `json:"created"`
	History  []Revision `json:"history"`
	Children []*RawPost `json:"children"`
}

// Anonymous reports whether the post itself (follow-ups and feedback,
// which carry no history) was made anonymously.
func (p *RawPost) Anonymous() bool {
	return p.Anon != "" && p.Anon != "no"
}

// Owner is the post's current owner: the author of the most recent
// revision, or the post's own uid for history-less children.
func (p *RawPost) Owner() string {
	if len(p.History) > 0 {
		return p.History[0].UID
	}
	return p.UID
}

// Client talks to the forum service. Authentication happens elsewhere;
// the client only carries an already-established session cookie.
type Client struct {
	baseURL string
	cookie  string
	client  *http.Client
}

func NewClient(baseURL, cookie string) *Client {
	return &Client{
		baseURL: baseURL,
		cookie:  cookie,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Feed fetches the network's top-level post listing.
func (c *Client) Feed(ctx context.Context, networkID string, limit, offset int) ([]FeedItem, error) {
	url := fmt.Sprintf("%s/api/v1/networks/%s/feed?limit=%d&offset=%d", c.baseURL, networkID, limit, offset)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	var resp struct {
		Feed []FeedItem `json:"feed"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return resp.Feed, nil
}

// Post fetches one full post, history and children included.
func (c *Client) Post(ctx context.Context, networkID, postID string) (*RawPost, error) {
	url := fmt.Sprintf("%s/api/v1/networks/%s/posts/%s", c.baseURL, networkID, postID)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch post %s: %w", postID, err)
	}

	var post RawPost
	if err := json.Unmarshal(body, &post); err != nil {
		return nil, fmt.Errorf("parse post %s: %w", postID, err)
	}
	return &post, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forum returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
