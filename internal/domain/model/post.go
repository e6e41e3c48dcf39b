package model

// PostStatus is the WordPress publication status of a post.
type PostStatus string

const (
	PostStatusPublish PostStatus = "publish"
	PostStatusDraft   PostStatus = "draft"
	PostStatusPrivate PostStatus = "private"
)

// ContentFormat describes how NewPost.Content is written.
type ContentFormat string

const (
	ContentFormatHTML     ContentFormat = "html"
	ContentFormatMarkdown ContentFormat = "markdown"
)

// NewPost is the input for creating a post.
type NewPost struct {
	Title    string
	Content  string
	Excerpt  string
	Status   PostStatus    // Defaults to publish.
	Format   ContentFormat // Defaults to html.
	Announce bool          // Send the new post to the owner's Telegram connections.
}

// PostPatch is a sparse post update: nil fields are not sent.
type PostPatch struct {
	Title   *string
	Content *string
	Excerpt *string
}

// IsEmpty reports whether the patch carries no field at all.
func (p PostPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Excerpt == nil
}

// PostResult is the tagged outcome of a create, update or delete call.
// PostID and URL are nil when the remote call did not yield them.
type PostResult struct {
	Success bool
	PostID  *int64
	URL     *string
	Message string
}

// PostSummary is the projection of a remote post returned by GetPosts.
type PostSummary struct {
	ID      int64
	Title   string
	Excerpt string
	URL     string
	Status  string
	Date    string
}

// PostListResult is the tagged outcome of a list call.
type PostListResult struct {
	Success bool
	Posts   []PostSummary
	Message string
}

// VerifyResult is the outcome of a credential check against a remote service.
type VerifyResult struct {
	Success     bool
	Message     string
	DisplayName string
}
