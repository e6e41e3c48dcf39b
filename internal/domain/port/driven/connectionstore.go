package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

// ErrPersistence is returned when a store document could not be written.
// The mutation that triggered the write did not happen.
var ErrPersistence = errors.New("persist connection store")

// ErrCorruptDocument is returned when a store document exists but cannot be parsed.
var ErrCorruptDocument = errors.New("connection store document is corrupt")

// WordPressStore defines the driven port for WordPress connection persistence.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext passwords at the domain boundary.
//
// Expected absence is never an error: Get returns (nil, nil), and Update,
// Delete and TouchLastUsed return (false, nil).
type WordPressStore interface {
	// Add creates a connection for owner and returns it with a freshly assigned ID.
	Add(ctx context.Context, owner string, in model.NewWordPressConnection) (model.WordPressConnection, error)

	// List returns owner's connections in creation order. Returns an empty
	// slice when the owner has none.
	List(ctx context.Context, owner string) ([]model.WordPressConnection, error)

	// Get returns a single connection, or nil if it does not exist.
	Get(ctx context.Context, owner, id string) (*model.WordPressConnection, error)

	// Update applies the non-nil fields of patch and refreshes UpdatedAt.
	Update(ctx context.Context, owner, id string, patch model.WordPressPatch) (bool, error)

	// Delete removes the connection.
	Delete(ctx context.Context, owner, id string) (bool, error)

	// TouchLastUsed sets LastUsed to now without altering other fields.
	TouchLastUsed(ctx context.Context, owner, id string) (bool, error)

	// ListAllEnabled returns every enabled connection across all owners keyed by ID.
	ListAllEnabled(ctx context.Context) (map[string]model.WordPressConnection, error)
}

// KieStore defines the driven port for Kie.ai connection persistence.
// Semantics match WordPressStore.
type KieStore interface {
	Add(ctx context.Context, owner string, in model.NewKieConnection) (model.KieConnection, error)
	List(ctx context.Context, owner string) ([]model.KieConnection, error)
	Get(ctx context.Context, owner, id string) (*model.KieConnection, error)
	Update(ctx context.Context, owner, id string, patch model.KiePatch) (bool, error)
	Delete(ctx context.Context, owner, id string) (bool, error)
	TouchLastUsed(ctx context.Context, owner, id string) (bool, error)
	ListAllEnabled(ctx context.Context) (map[string]model.KieConnection, error)
}

// WordstatStore defines the driven port for Wordstat connection persistence.
// Semantics match WordPressStore.
type WordstatStore interface {
	Add(ctx context.Context, owner string, in model.NewWordstatConnection) (model.WordstatConnection, error)
	List(ctx context.Context, owner string) ([]model.WordstatConnection, error)
	Get(ctx context.Context, owner, id string) (*model.WordstatConnection, error)
	Update(ctx context.Context, owner, id string, patch model.WordstatPatch) (bool, error)
	Delete(ctx context.Context, owner, id string) (bool, error)
	TouchLastUsed(ctx context.Context, owner, id string) (bool, error)
	ListAllEnabled(ctx context.Context) (map[string]model.WordstatConnection, error)
}

// TelegramStore defines the driven port for Telegram connection persistence.
// Semantics match WordPressStore.
type TelegramStore interface {
	Add(ctx context.Context, owner string, in model.NewTelegramConnection) (model.TelegramConnection, error)
	List(ctx context.Context, owner string) ([]model.TelegramConnection, error)
	Get(ctx context.Context, owner, id string) (*model.TelegramConnection, error)
	Update(ctx context.Context, owner, id string, patch model.TelegramPatch) (bool, error)
	Delete(ctx context.Context, owner, id string) (bool, error)
	TouchLastUsed(ctx context.Context, owner, id string) (bool, error)
	ListAllEnabled(ctx context.Context) (map[string]model.TelegramConnection, error)
}
