package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

// MsgConnectionNotFound is the failure message when no usable WordPress
// connection exists for a call.
const MsgConnectionNotFound = "WordPress connection not found"

// PostService runs post operations on behalf of an owner: it resolves the
// owner's WordPress connection, stamps its last use, calls the CMS and records
// the outcome in the usage ledger. Every outcome is a result value; store and
// transport failures never surface as errors.
type PostService struct {
	wordpress driven.WordPressStore
	clients   *ClientRegistry
	telegram  driven.TelegramStore
	notifier  driven.TelegramNotifier
	usage     driven.UsageStore
	logger    *slog.Logger
}

// NewPostService creates a PostService. telegram, notifier and usage may be
// nil, which disables announcements and usage recording respectively.
func NewPostService(
	wordpress driven.WordPressStore,
	clients *ClientRegistry,
	telegram driven.TelegramStore,
	notifier driven.TelegramNotifier,
	usage driven.UsageStore,
	logger *slog.Logger,
) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		wordpress: wordpress,
		clients:   clients,
		telegram:  telegram,
		notifier:  notifier,
		usage:     usage,
		logger:    logger,
	}
}

// CreatePost creates a post on the resolved connection. Markdown content is
// rendered to sanitized HTML first. With Announce set, a successful post is
// sent to every enabled Telegram connection of the owner.
func (s *PostService) CreatePost(ctx context.Context, owner, connectionID string, post model.NewPost) model.PostResult {
	conn, msg := s.resolve(ctx, owner, connectionID)
	if conn == nil {
		return model.PostResult{Message: msg}
	}

	content, err := RenderContent(post.Format, post.Content)
	if err != nil {
		return model.PostResult{Message: fmt.Sprintf("Error creating post: %v", err)}
	}
	post.Content = content

	result := s.clients.Get(*conn).CreatePost(ctx, post)
	s.record(ctx, owner, model.KindWordPress, conn.ID, "create_post", result.Success, result.Message)

	if result.Success && post.Announce {
		s.announce(ctx, owner, post.Title, derefString(result.URL))
	}
	return result
}

// UpdatePost applies a sparse update to an existing post.
func (s *PostService) UpdatePost(ctx context.Context, owner, connectionID string, postID int64, patch model.PostPatch) model.PostResult {
	conn, msg := s.resolve(ctx, owner, connectionID)
	if conn == nil {
		return model.PostResult{PostID: &postID, Message: msg}
	}

	result := s.clients.Get(*conn).UpdatePost(ctx, postID, patch)
	s.record(ctx, owner, model.KindWordPress, conn.ID, "update_post", result.Success, result.Message)
	return result
}

// GetPosts lists one page of posts.
func (s *PostService) GetPosts(ctx context.Context, owner, connectionID string, perPage, page int) model.PostListResult {
	conn, msg := s.resolve(ctx, owner, connectionID)
	if conn == nil {
		return model.PostListResult{Posts: []model.PostSummary{}, Message: msg}
	}

	result := s.clients.Get(*conn).GetPosts(ctx, perPage, page)
	s.record(ctx, owner, model.KindWordPress, conn.ID, "get_posts", result.Success, result.Message)
	return result
}

// DeletePost deletes a post.
func (s *PostService) DeletePost(ctx context.Context, owner, connectionID string, postID int64) model.PostResult {
	conn, msg := s.resolve(ctx, owner, connectionID)
	if conn == nil {
		return model.PostResult{PostID: &postID, Message: msg}
	}

	result := s.clients.Get(*conn).DeletePost(ctx, postID)
	s.record(ctx, owner, model.KindWordPress, conn.ID, "delete_post", result.Success, result.Message)
	return result
}

// ListConnections returns the owner's WordPress connections.
func (s *PostService) ListConnections(ctx context.Context, owner string) ([]model.WordPressConnection, error) {
	return s.wordpress.List(ctx, owner)
}

// resolve picks the connection for a call: the explicit id when given,
// otherwise the owner's first enabled connection. It stamps last_used right
// before the credentials are handed out. On failure it returns nil and the
// message for the caller.
func (s *PostService) resolve(ctx context.Context, owner, connectionID string) (*model.WordPressConnection, string) {
	var conn *model.WordPressConnection

	if connectionID != "" {
		found, err := s.wordpress.Get(ctx, owner, connectionID)
		if err != nil {
			s.logger.Error("failed to load wordpress connection", "owner", owner, "connection_id", connectionID, "error", err)
			return nil, fmt.Sprintf("Error loading WordPress connection: %v", err)
		}
		if found == nil {
			return nil, MsgConnectionNotFound
		}
		if !found.Enabled {
			return nil, fmt.Sprintf("WordPress connection %s is disabled", connectionID)
		}
		conn = found
	} else {
		all, err := s.wordpress.List(ctx, owner)
		if err != nil {
			s.logger.Error("failed to list wordpress connections", "owner", owner, "error", err)
			return nil, fmt.Sprintf("Error loading WordPress connection: %v", err)
		}
		for i := range all {
			if all[i].Enabled {
				conn = &all[i]
				break
			}
		}
		if conn == nil {
			return nil, MsgConnectionNotFound
		}
	}

	if _, err := s.wordpress.TouchLastUsed(ctx, owner, conn.ID); err != nil {
		s.logger.Warn("failed to update last_used", "owner", owner, "connection_id", conn.ID, "error", err)
	}
	return conn, ""
}

func (s *PostService) announce(ctx context.Context, owner, title, url string) {
	if s.telegram == nil || s.notifier == nil {
		return
	}

	conns, err := s.telegram.List(ctx, owner)
	if err != nil {
		s.logger.Error("failed to list telegram connections", "owner", owner, "error", err)
		return
	}

	text := title
	if url != "" {
		text += "\n" + url
	}

	for _, conn := range conns {
		if !conn.Enabled {
			continue
		}
		if _, err := s.telegram.TouchLastUsed(ctx, owner, conn.ID); err != nil {
			s.logger.Warn("failed to update last_used", "owner", owner, "connection_id", conn.ID, "error", err)
		}

		err := s.notifier.Send(ctx, conn, text)
		msg := "announced"
		if err != nil {
			msg = err.Error()
			s.logger.Warn("telegram announcement failed", "owner", owner, "connection_id", conn.ID, "error", err)
		}
		s.record(ctx, owner, model.KindTelegram, conn.ID, "announce", err == nil, msg)
	}
}

func (s *PostService) record(ctx context.Context, owner string, kind model.Kind, connectionID, op string, success bool, msg string) {
	if s.usage == nil {
		return
	}
	_, err := s.usage.Record(ctx, model.UsageEvent{
		Owner:        owner,
		Kind:         kind,
		ConnectionID: connectionID,
		Operation:    op,
		Success:      success,
		Message:      msg,
	})
	if err != nil {
		s.logger.Warn("failed to record usage", "owner", owner, "connection_id", connectionID, "operation", op, "error", err)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
