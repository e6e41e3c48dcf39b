package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

const (
	defaultPerPage = 10
	defaultPage    = 1
)

// postResponse is the JSON result of create_post and update_post.
type postResponse struct {
	Success bool    `json:"success"`
	PostID  *int64  `json:"post_id"`
	URL     *string `json:"url"`
	Message string  `json:"message"`
}

// deleteResponse is the JSON result of delete_post.
type deleteResponse struct {
	Success bool   `json:"success"`
	PostID  *int64 `json:"post_id"`
	Message string `json:"message"`
}

type postSummaryResponse struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url"`
	Status  string `json:"status"`
	Date    string `json:"date"`
}

// postsResponse is the JSON result of get_posts.
type postsResponse struct {
	Success bool                  `json:"success"`
	Posts   []postSummaryResponse `json:"posts"`
	Count   int                   `json:"count"`
	Message string                `json:"message"`
}

// connectionResponse describes a WordPress connection without its password.
type connectionResponse struct {
	ConnectionID    string  `json:"connection_id"`
	SiteName        string  `json:"site_name"`
	SiteURL         string  `json:"site_url"`
	SiteLanguage    string  `json:"site_language"`
	SiteDescription string  `json:"site_description"`
	Enabled         bool    `json:"enabled"`
	LastUsed        *string `json:"last_used"`
}

type connectionsResponse struct {
	Success     bool                 `json:"success"`
	Connections []connectionResponse `json:"connections"`
	Count       int                  `json:"count"`
	Message     string               `json:"message"`
}

func (s *Server) registerTools() {
	ownerArg := mcp.WithString("owner",
		mcp.Required(),
		mcp.Description("Username whose stored WordPress connections are used"),
	)
	connectionArg := mcp.WithString("connection_id",
		mcp.Description("Connection to use; defaults to the owner's first enabled WordPress connection"),
	)

	s.addTool(mcp.NewTool("create_post",
		mcp.WithDescription("Create a new WordPress post on your site"),
		ownerArg,
		connectionArg,
		mcp.WithString("title", mcp.Required(), mcp.Description("Post title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Post content in HTML, or Markdown when format is markdown")),
		mcp.WithString("excerpt", mcp.Description("Post excerpt")),
		mcp.WithString("status",
			mcp.Description("Post status"),
			mcp.Enum(string(model.PostStatusPublish), string(model.PostStatusDraft), string(model.PostStatusPrivate)),
			mcp.DefaultString(string(model.PostStatusPublish)),
		),
		mcp.WithString("format",
			mcp.Description("Content format"),
			mcp.Enum(string(model.ContentFormatHTML), string(model.ContentFormatMarkdown)),
			mcp.DefaultString(string(model.ContentFormatHTML)),
		),
		mcp.WithBoolean("announce",
			mcp.Description("Send the new post's title and link to the owner's enabled Telegram connections"),
			mcp.DefaultBool(false),
		),
	), s.handleCreatePost)

	s.addTool(mcp.NewTool("update_post",
		mcp.WithDescription("Update an existing WordPress post"),
		ownerArg,
		connectionArg,
		mcp.WithNumber("post_id", mcp.Required(), mcp.Description("Post ID to update")),
		mcp.WithString("title", mcp.Description("New post title")),
		mcp.WithString("content", mcp.Description("New post content in HTML")),
		mcp.WithString("excerpt", mcp.Description("New post excerpt")),
	), s.handleUpdatePost)

	s.addTool(mcp.NewTool("get_posts",
		mcp.WithDescription("Get list of WordPress posts"),
		ownerArg,
		connectionArg,
		mcp.WithNumber("per_page", mcp.Description("Number of posts per page (1-100)"), mcp.DefaultNumber(defaultPerPage), mcp.Min(1), mcp.Max(100)),
		mcp.WithNumber("page", mcp.Description("Page number"), mcp.DefaultNumber(defaultPage), mcp.Min(1)),
	), s.handleGetPosts)

	s.addTool(mcp.NewTool("delete_post",
		mcp.WithDescription("Delete a WordPress post"),
		ownerArg,
		connectionArg,
		mcp.WithNumber("post_id", mcp.Required(), mcp.Description("Post ID to delete")),
	), s.handleDeletePost)

	s.addTool(mcp.NewTool("list_connections",
		mcp.WithDescription("List the WordPress connections stored for an owner"),
		ownerArg,
	), s.handleListConnections)
}

func (s *Server) handleCreatePost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := requireNonEmpty(req, "owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := requireNonEmpty(req, "title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status := model.PostStatus(req.GetString("status", string(model.PostStatusPublish)))
	switch status {
	case model.PostStatusPublish, model.PostStatusDraft, model.PostStatusPrivate:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid status %q: expected publish, draft or private", status)), nil
	}

	format := model.ContentFormat(req.GetString("format", string(model.ContentFormatHTML)))
	switch format {
	case model.ContentFormatHTML, model.ContentFormatMarkdown:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid format %q: expected html or markdown", format)), nil
	}

	result := s.posts.CreatePost(ctx, owner, req.GetString("connection_id", ""), model.NewPost{
		Title:    title,
		Content:  content,
		Excerpt:  req.GetString("excerpt", ""),
		Status:   status,
		Format:   format,
		Announce: req.GetBool("announce", false),
	})
	return jsonResult(toPostResponse(result))
}

func (s *Server) handleUpdatePost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := requireNonEmpty(req, "owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	postID, err := requirePostID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	patch := model.PostPatch{
		Title:   optionalString(req, "title"),
		Content: optionalString(req, "content"),
		Excerpt: optionalString(req, "excerpt"),
	}
	result := s.posts.UpdatePost(ctx, owner, req.GetString("connection_id", ""), postID, patch)
	return jsonResult(toPostResponse(result))
}

func (s *Server) handleGetPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := requireNonEmpty(req, "owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.posts.GetPosts(ctx, owner, req.GetString("connection_id", ""),
		req.GetInt("per_page", defaultPerPage),
		req.GetInt("page", defaultPage),
	)

	posts := make([]postSummaryResponse, 0, len(result.Posts))
	for _, p := range result.Posts {
		posts = append(posts, postSummaryResponse{
			ID:      p.ID,
			Title:   p.Title,
			Excerpt: p.Excerpt,
			URL:     p.URL,
			Status:  p.Status,
			Date:    p.Date,
		})
	}
	return jsonResult(postsResponse{
		Success: result.Success,
		Posts:   posts,
		Count:   len(posts),
		Message: result.Message,
	})
}

func (s *Server) handleDeletePost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := requireNonEmpty(req, "owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	postID, err := requirePostID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.posts.DeletePost(ctx, owner, req.GetString("connection_id", ""), postID)
	return jsonResult(deleteResponse{
		Success: result.Success,
		PostID:  result.PostID,
		Message: result.Message,
	})
}

func (s *Server) handleListConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := requireNonEmpty(req, "owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conns, err := s.posts.ListConnections(ctx, owner)
	if err != nil {
		s.logger.Error("failed to list connections", "owner", owner, "error", err)
		return jsonResult(connectionsResponse{
			Connections: []connectionResponse{},
			Message:     fmt.Sprintf("Error listing connections: %v", err),
		})
	}

	out := make([]connectionResponse, 0, len(conns))
	for _, c := range conns {
		var lastUsed *string
		if c.LastUsed != nil {
			v := c.LastUsed.UTC().Format(time.RFC3339)
			lastUsed = &v
		}
		out = append(out, connectionResponse{
			ConnectionID:    c.ID,
			SiteName:        c.SiteName,
			SiteURL:         c.SiteURL,
			SiteLanguage:    c.SiteLanguage,
			SiteDescription: c.SiteDescription,
			Enabled:         c.Enabled,
			LastUsed:        lastUsed,
		})
	}
	return jsonResult(connectionsResponse{
		Success:     true,
		Connections: out,
		Count:       len(out),
		Message:     fmt.Sprintf("Found %d connections", len(out)),
	})
}

func toPostResponse(r model.PostResult) postResponse {
	return postResponse{Success: r.Success, PostID: r.PostID, URL: r.URL, Message: r.Message}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func requireNonEmpty(req mcp.CallToolRequest, key string) (string, error) {
	v, err := req.RequireString(key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("argument %q must not be empty", key)
	}
	return v, nil
}

func requirePostID(req mcp.CallToolRequest) (int64, error) {
	id, err := req.RequireInt("post_id")
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("argument %q must be a positive integer", "post_id")
	}
	return int64(id), nil
}

// optionalString distinguishes an absent argument from an empty one.
func optionalString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}
