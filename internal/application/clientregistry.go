package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

// CMSClientFactory builds a CMS client for one connection's credentials.
type CMSClientFactory func(conn model.WordPressConnection) driven.CMSClient

type cachedClient struct {
	fingerprint string
	client      driven.CMSClient
}

// ClientRegistry caches CMS clients per connection so repeated tool calls
// reuse one HTTP client and its response cache. An entry is only reused while
// the connection's identity and credentials are unchanged; the fingerprint
// covers created_at, so a reissued id never gets a stale client.
type ClientRegistry struct {
	cache   *expirable.LRU[string, cachedClient]
	factory CMSClientFactory
}

// NewClientRegistry creates a registry holding up to size clients, each for at most ttl.
func NewClientRegistry(factory CMSClientFactory, size int, ttl time.Duration) *ClientRegistry {
	return &ClientRegistry{
		cache:   expirable.NewLRU[string, cachedClient](size, nil, ttl),
		factory: factory,
	}
}

// Get returns the cached client for conn, building a new one when none is
// cached or the connection changed since it was built.
func (r *ClientRegistry) Get(conn model.WordPressConnection) driven.CMSClient {
	fp := fingerprint(conn)
	if cached, ok := r.cache.Get(conn.ID); ok && cached.fingerprint == fp {
		return cached.client
	}

	client := r.factory(conn)
	r.cache.Add(conn.ID, cachedClient{fingerprint: fp, client: client})
	return client
}

// Warm builds clients for every enabled connection and returns how many are cached.
func (r *ClientRegistry) Warm(ctx context.Context, store driven.WordPressStore) (int, error) {
	conns, err := store.ListAllEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("warm client registry: %w", err)
	}
	for _, conn := range conns {
		r.Get(conn)
	}
	return r.cache.Len(), nil
}

// Forget drops the cached client for a connection id.
func (r *ClientRegistry) Forget(id string) {
	r.cache.Remove(id)
}

// Purge empties the registry.
func (r *ClientRegistry) Purge() {
	r.cache.Purge()
}

// Len returns the number of cached clients.
func (r *ClientRegistry) Len() int {
	return r.cache.Len()
}

func fingerprint(conn model.WordPressConnection) string {
	h := sha256.New()
	for _, part := range []string{
		conn.CreatedAt.UTC().Format(time.RFC3339Nano),
		conn.UpdatedAt.UTC().Format(time.RFC3339Nano),
		conn.SiteURL,
		conn.Username,
		conn.Password,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
