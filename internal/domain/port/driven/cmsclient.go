package driven

import (
	"context"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

// CMSClient defines the driven port for post CRUD against one CMS site.
// Implementations never return transport failures as errors: every outcome is
// a tagged result carrying a human-readable message.
type CMSClient interface {
	CreatePost(ctx context.Context, post model.NewPost) model.PostResult
	UpdatePost(ctx context.Context, postID int64, patch model.PostPatch) model.PostResult
	GetPosts(ctx context.Context, perPage, page int) model.PostListResult
	DeletePost(ctx context.Context, postID int64) model.PostResult

	// Verify checks the credentials against the site's current-user endpoint.
	Verify(ctx context.Context) model.VerifyResult
}
