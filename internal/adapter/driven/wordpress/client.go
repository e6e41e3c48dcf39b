// Package wordpress implements the CMSClient port against the WordPress REST API.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

const (
	// DefaultTimeout bounds every CMS call.
	DefaultTimeout = 30 * time.Second

	// verifyTimeout bounds the credential check, which should be quick.
	verifyTimeout = 10 * time.Second

	apiPath = "/wp-json/wp/v2"

	maxPerPage = 100
)

// Compile-time interface satisfaction check.
var _ driven.CMSClient = (*Client)(nil)

// TransportError describes a failed CMS call: a network error, a non-2xx
// status or a response body that could not be decoded.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received.
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d %s: %v", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to one WordPress site with one set of application-password credentials.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default caching HTTP client. Used by tests to
// inject an httptest server client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for siteURL with the following transport stack:
//  1. httpcache (conditional GET caching for post listings)
//  2. net/http default transport
func NewClient(siteURL, username, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(siteURL, "/") + apiPath,
		username: username,
		password: password,
		http: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   DefaultTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// postRequest is the JSON body for creating or updating a post. Nil fields are omitted.
type postRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Excerpt *string `json:"excerpt,omitempty"`
	Status  string  `json:"status,omitempty"`
}

type renderedField struct {
	Rendered string `json:"rendered"`
}

// postResponse is the subset of the WordPress post object the gateway reads.
type postResponse struct {
	ID      int64         `json:"id"`
	Link    string        `json:"link"`
	Status  string        `json:"status"`
	Date    string        `json:"date"`
	Title   renderedField `json:"title"`
	Excerpt renderedField `json:"excerpt"`
}

type userResponse struct {
	Name string `json:"name"`
}

// CreatePost publishes a new post. Status defaults to publish.
func (c *Client) CreatePost(ctx context.Context, post model.NewPost) model.PostResult {
	status := post.Status
	if status == "" {
		status = model.PostStatusPublish
	}

	body := postRequest{
		Title:   &post.Title,
		Content: &post.Content,
		Excerpt: &post.Excerpt,
		Status:  string(status),
	}

	var created postResponse
	if err := c.do(ctx, "create_post", http.MethodPost, "/posts", nil, body, &created); err != nil {
		c.logger.Error("failed to create post", "site", c.baseURL, "error", err)
		return model.PostResult{Message: fmt.Sprintf("Error creating post: %v", err)}
	}

	c.logger.Info("post created", "site", c.baseURL, "post_id", created.ID, "url", created.Link)
	return model.PostResult{
		Success: true,
		PostID:  &created.ID,
		URL:     &created.Link,
		Message: fmt.Sprintf("Post '%s' created successfully", post.Title),
	}
}

// UpdatePost sends only the fields present in patch. An empty patch fails
// without contacting the site.
func (c *Client) UpdatePost(ctx context.Context, postID int64, patch model.PostPatch) model.PostResult {
	id := postID
	if patch.IsEmpty() {
		return model.PostResult{PostID: &id, Message: "No fields to update"}
	}

	body := postRequest{Title: patch.Title, Content: patch.Content, Excerpt: patch.Excerpt}

	var updated postResponse
	path := "/posts/" + strconv.FormatInt(postID, 10)
	if err := c.do(ctx, "update_post", http.MethodPost, path, nil, body, &updated); err != nil {
		c.logger.Error("failed to update post", "site", c.baseURL, "post_id", postID, "error", err)
		return model.PostResult{PostID: &id, Message: fmt.Sprintf("Error updating post: %v", err)}
	}

	c.logger.Info("post updated", "site", c.baseURL, "post_id", postID, "url", updated.Link)
	return model.PostResult{
		Success: true,
		PostID:  &id,
		URL:     &updated.Link,
		Message: fmt.Sprintf("Post %d updated successfully", postID),
	}
}

// GetPosts lists one page of posts. perPage is clamped to [1, 100] and page to at least 1.
func (c *Client) GetPosts(ctx context.Context, perPage, page int) model.PostListResult {
	perPage = min(max(perPage, 1), maxPerPage)
	page = max(page, 1)

	query := url.Values{}
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("page", strconv.Itoa(page))

	var posts []postResponse
	if err := c.do(ctx, "get_posts", http.MethodGet, "/posts", query, nil, &posts); err != nil {
		c.logger.Error("failed to get posts", "site", c.baseURL, "error", err)
		return model.PostListResult{
			Posts:   []model.PostSummary{},
			Message: fmt.Sprintf("Error getting posts: %v", err),
		}
	}

	summaries := make([]model.PostSummary, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, model.PostSummary{
			ID:      p.ID,
			Title:   p.Title.Rendered,
			Excerpt: p.Excerpt.Rendered,
			URL:     p.Link,
			Status:  p.Status,
			Date:    p.Date,
		})
	}

	return model.PostListResult{
		Success: true,
		Posts:   summaries,
		Message: fmt.Sprintf("Retrieved %d posts", len(summaries)),
	}
}

// DeletePost moves a post to the trash.
func (c *Client) DeletePost(ctx context.Context, postID int64) model.PostResult {
	id := postID
	path := "/posts/" + strconv.FormatInt(postID, 10)
	if err := c.do(ctx, "delete_post", http.MethodDelete, path, nil, nil, nil); err != nil {
		c.logger.Error("failed to delete post", "site", c.baseURL, "post_id", postID, "error", err)
		return model.PostResult{PostID: &id, Message: fmt.Sprintf("Error deleting post: %v", err)}
	}

	c.logger.Info("post deleted", "site", c.baseURL, "post_id", postID)
	return model.PostResult{
		Success: true,
		PostID:  &id,
		Message: fmt.Sprintf("Post %d deleted successfully", postID),
	}
}

// Verify checks the credentials against the current-user endpoint.
func (c *Client) Verify(ctx context.Context) model.VerifyResult {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	var user userResponse
	err := c.do(ctx, "verify", http.MethodGet, "/users/me", nil, nil, &user)

	var terr *TransportError
	switch {
	case err == nil:
		name := user.Name
		if name == "" {
			name = c.username
		}
		return model.VerifyResult{
			Success:     true,
			Message:     "Successfully connected as " + name,
			DisplayName: name,
		}
	case errors.As(err, &terr) && terr.StatusCode != 0:
		return model.VerifyResult{Message: fmt.Sprintf("Authentication failed: %d", terr.StatusCode)}
	default:
		return model.VerifyResult{Message: fmt.Sprintf("Connection error: %v", err)}
	}
}

// do performs one authenticated JSON request. Every failure is a *TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	start := time.Now()
	defer func() { observe(op, start, err) }()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(remoteMessage(resp.Body))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, StatusCode: 0, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// remoteMessage extracts the "message" field of a WordPress error body, or
// falls back to a truncated raw body.
func remoteMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))

	var wpErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &wpErr) == nil && wpErr.Message != "" {
		if wpErr.Code != "" {
			return fmt.Sprintf("%s (%s)", wpErr.Message, wpErr.Code)
		}
		return wpErr.Message
	}

	text := strings.TrimSpace(string(data))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	if text == "" {
		return "empty response body"
	}
	return text
}
