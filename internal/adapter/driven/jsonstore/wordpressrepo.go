package jsonstore

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

const defaultSiteLanguage = "en"

// wordpressDocument maps owner -> connection id -> record.
type wordpressDocument map[string]map[string]*wordpressRecord

// Compile-time interface satisfaction check.
var _ driven.WordPressStore = (*WordPressRepo)(nil)

// WordPressRepo implements driven.WordPressStore over a single JSON document.
// Passwords are encrypted before they are written and decrypted on read.
type WordPressRepo struct {
	file   *jsonFile[wordpressDocument]
	cipher driven.SecretCipher
	opts   options
}

// NewWordPressRepo creates a repository backed by the document at path.
// The file and its directory are created on the first write.
func NewWordPressRepo(path string, cipher driven.SecretCipher, opts ...Option) *WordPressRepo {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &WordPressRepo{
		file:   newJSONFile(path, func() wordpressDocument { return wordpressDocument{} }, o),
		cipher: cipher,
		opts:   o,
	}
}

// Add creates a connection with the next free "{owner}_{n}" id.
func (r *WordPressRepo) Add(ctx context.Context, owner string, in model.NewWordPressConnection) (model.WordPressConnection, error) {
	password, err := r.cipher.Encrypt(in.Password)
	if err != nil {
		return model.WordPressConnection{}, fmt.Errorf("encrypt wordpress password: %w", err)
	}

	language := in.SiteLanguage
	if language == "" {
		language = defaultSiteLanguage
	}

	var created *wordpressRecord
	err = r.file.update(ctx, func(doc wordpressDocument) (bool, error) {
		partition := doc[owner]
		if partition == nil {
			partition = map[string]*wordpressRecord{}
			doc[owner] = partition
		}

		id := nextID(partition, wordpressPrefix(owner))
		created = &wordpressRecord{
			recordMeta:      newRecordMeta(id, r.opts.now()),
			SiteName:        in.SiteName,
			SiteURL:         normalizeSiteURL(in.SiteURL),
			Username:        in.Username,
			Password:        password,
			SiteLanguage:    language,
			SiteDescription: in.SiteDescription,
		}
		partition[id] = created
		return true, nil
	})
	if err != nil {
		return model.WordPressConnection{}, fmt.Errorf("add wordpress connection for %q: %w", owner, err)
	}

	connectionsAdded.WithLabelValues(string(model.KindWordPress)).Inc()
	r.opts.logger.Info("wordpress connection added", "owner", owner, "connection_id", created.ConnectionID)

	conn := r.toModel(owner, created)
	conn.Password = in.Password
	return conn, nil
}

// List returns the owner's connections in creation order.
func (r *WordPressRepo) List(ctx context.Context, owner string) ([]model.WordPressConnection, error) {
	var out []model.WordPressConnection
	err := r.file.view(ctx, func(doc wordpressDocument) error {
		records := sortedRecords(livePartition(doc[owner]), func(rec *wordpressRecord) recordMeta { return rec.recordMeta })
		out = make([]model.WordPressConnection, 0, len(records))
		for _, rec := range records {
			conn, err := r.decrypt(owner, rec)
			if err != nil {
				return err
			}
			out = append(out, conn)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list wordpress connections for %q: %w", owner, err)
	}
	return out, nil
}

// Get returns one connection, or nil when it does not exist.
func (r *WordPressRepo) Get(ctx context.Context, owner, id string) (*model.WordPressConnection, error) {
	var out *model.WordPressConnection
	err := r.file.view(ctx, func(doc wordpressDocument) error {
		rec := doc[owner][id]
		if rec == nil {
			return nil
		}
		conn, err := r.decrypt(owner, rec)
		if err != nil {
			return err
		}
		out = &conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get wordpress connection %q: %w", id, err)
	}
	return out, nil
}

// Update applies the non-nil patch fields and refreshes updated_at.
func (r *WordPressRepo) Update(ctx context.Context, owner, id string, patch model.WordPressPatch) (bool, error) {
	var password string
	if patch.Password != nil {
		var err error
		if password, err = r.cipher.Encrypt(*patch.Password); err != nil {
			return false, fmt.Errorf("encrypt wordpress password: %w", err)
		}
	}

	var found bool
	err := r.file.update(ctx, func(doc wordpressDocument) (bool, error) {
		rec := doc[owner][id]
		if rec == nil {
			return false, nil
		}
		found = true

		applyString(&rec.SiteName, patch.SiteName)
		if patch.SiteURL != nil {
			rec.SiteURL = normalizeSiteURL(*patch.SiteURL)
		}
		applyString(&rec.Username, patch.Username)
		if patch.Password != nil {
			rec.Password = password
		}
		applyString(&rec.SiteLanguage, patch.SiteLanguage)
		applyString(&rec.SiteDescription, patch.SiteDescription)
		if patch.Enabled != nil {
			rec.setEnabled(*patch.Enabled)
		}
		rec.UpdatedAt = isoTimePtr(r.opts.now())
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("update wordpress connection %q: %w", id, err)
	}
	return found, nil
}

// Delete removes the connection and prunes the owner when nothing is left.
func (r *WordPressRepo) Delete(ctx context.Context, owner, id string) (bool, error) {
	var found bool
	err := r.file.update(ctx, func(doc wordpressDocument) (bool, error) {
		partition, ok := doc[owner]
		if !ok {
			return false, nil
		}
		if _, ok := partition[id]; !ok {
			return false, nil
		}
		found = true

		delete(partition, id)
		if len(partition) == 0 {
			delete(doc, owner)
		}
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("delete wordpress connection %q: %w", id, err)
	}
	if found {
		r.opts.logger.Info("wordpress connection deleted", "owner", owner, "connection_id", id)
	}
	return found, nil
}

// TouchLastUsed stamps last_used with the current time.
func (r *WordPressRepo) TouchLastUsed(ctx context.Context, owner, id string) (bool, error) {
	var found bool
	err := r.file.update(ctx, func(doc wordpressDocument) (bool, error) {
		rec := doc[owner][id]
		if rec == nil {
			return false, nil
		}
		found = true
		rec.LastUsed = isoTimePtr(r.opts.now())
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("touch wordpress connection %q: %w", id, err)
	}
	return found, nil
}

// ListAllEnabled returns every enabled connection across all owners.
func (r *WordPressRepo) ListAllEnabled(ctx context.Context) (map[string]model.WordPressConnection, error) {
	out := map[string]model.WordPressConnection{}
	err := r.file.view(ctx, func(doc wordpressDocument) error {
		for owner, partition := range doc {
			for id, rec := range partition {
				if rec == nil || !rec.isEnabled() {
					continue
				}
				conn, err := r.decrypt(owner, rec)
				if err != nil {
					return err
				}
				out[id] = conn
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list enabled wordpress connections: %w", err)
	}
	return out, nil
}

func (r *WordPressRepo) decrypt(owner string, rec *wordpressRecord) (model.WordPressConnection, error) {
	conn := r.toModel(owner, rec)
	password, err := r.cipher.Decrypt(rec.Password)
	if err != nil {
		return model.WordPressConnection{}, fmt.Errorf("connection %q password: %w", rec.ConnectionID, err)
	}
	conn.Password = password
	return conn, nil
}

// toModel maps the record without its secret.
func (r *WordPressRepo) toModel(owner string, rec *wordpressRecord) model.WordPressConnection {
	return model.WordPressConnection{
		ConnectionMeta:  rec.recordMeta.toModel(owner),
		SiteName:        rec.SiteName,
		SiteURL:         rec.SiteURL,
		Username:        rec.Username,
		SiteLanguage:    rec.SiteLanguage,
		SiteDescription: rec.SiteDescription,
	}
}

// livePartition drops null entries left in a hand-edited document.
func livePartition[R any](partition map[string]*R) map[string]*R {
	out := make(map[string]*R, len(partition))
	for id, rec := range partition {
		if rec != nil {
			out[id] = rec
		}
	}
	return out
}
