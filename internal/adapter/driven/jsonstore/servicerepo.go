package jsonstore

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

// serviceOwner is one owner's entry in the combined service document.
type serviceOwner struct {
	Kie      map[string]*kieRecord      `json:"kie"`
	Wordstat map[string]*wordstatRecord `json:"wordstat"`
	Telegram map[string]*telegramRecord `json:"telegram"`
}

func (o *serviceOwner) isEmpty() bool {
	return len(o.Kie) == 0 && len(o.Wordstat) == 0 && len(o.Telegram) == 0
}

// fill replaces nil kind maps so every kind key is written as an object.
func (o *serviceOwner) fill() {
	if o.Kie == nil {
		o.Kie = map[string]*kieRecord{}
	}
	if o.Wordstat == nil {
		o.Wordstat = map[string]*wordstatRecord{}
	}
	if o.Telegram == nil {
		o.Telegram = map[string]*telegramRecord{}
	}
}

// serviceDocument maps owner -> kind -> connection id -> record.
type serviceDocument map[string]*serviceOwner

// fill normalizes every owner entry before the document is saved.
func (d serviceDocument) fill() {
	for owner, o := range d {
		if o == nil {
			delete(d, owner)
			continue
		}
		o.fill()
	}
}

// ServiceRepo owns the combined Kie.ai / Wordstat / Telegram document. Each
// kind is reached through its own view; all views share one file lock.
type ServiceRepo struct {
	file     *jsonFile[serviceDocument]
	cipher   driven.SecretCipher
	opts     options
	kie      *KieRepo
	wordstat *WordstatRepo
	telegram *TelegramRepo
}

// NewServiceRepo creates a repository backed by the document at path.
func NewServiceRepo(path string, cipher driven.SecretCipher, opts ...Option) *ServiceRepo {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &ServiceRepo{
		file:   newJSONFile(path, func() serviceDocument { return serviceDocument{} }, o),
		cipher: cipher,
		opts:   o,
	}

	r.kie = &KieRepo{kind: serviceKind[kieRecord, model.KieConnection]{
		repo:      r,
		kind:      model.KindKie,
		partition: func(o *serviceOwner) *map[string]*kieRecord { return &o.Kie },
		meta:      func(rec *kieRecord) *recordMeta { return &rec.recordMeta },
		decode:    r.decodeKie,
	}}
	r.wordstat = &WordstatRepo{kind: serviceKind[wordstatRecord, model.WordstatConnection]{
		repo:      r,
		kind:      model.KindWordstat,
		partition: func(o *serviceOwner) *map[string]*wordstatRecord { return &o.Wordstat },
		meta:      func(rec *wordstatRecord) *recordMeta { return &rec.recordMeta },
		decode:    r.decodeWordstat,
	}}
	r.telegram = &TelegramRepo{kind: serviceKind[telegramRecord, model.TelegramConnection]{
		repo:      r,
		kind:      model.KindTelegram,
		partition: func(o *serviceOwner) *map[string]*telegramRecord { return &o.Telegram },
		meta:      func(rec *telegramRecord) *recordMeta { return &rec.recordMeta },
		decode:    r.decodeTelegram,
	}}
	return r
}

// Kie returns the Kie.ai connection view.
func (r *ServiceRepo) Kie() *KieRepo { return r.kie }

// Wordstat returns the Wordstat connection view.
func (r *ServiceRepo) Wordstat() *WordstatRepo { return r.wordstat }

// Telegram returns the Telegram connection view.
func (r *ServiceRepo) Telegram() *TelegramRepo { return r.telegram }

func (r *ServiceRepo) decodeKie(owner string, rec *kieRecord) (model.KieConnection, error) {
	key, err := r.cipher.Decrypt(rec.APIKey)
	if err != nil {
		return model.KieConnection{}, fmt.Errorf("connection %q api key: %w", rec.ConnectionID, err)
	}
	return model.KieConnection{
		ConnectionMeta: rec.recordMeta.toModel(owner),
		Name:           rec.Name,
		APIKey:         key,
		Description:    rec.Description,
	}, nil
}

func (r *ServiceRepo) decodeWordstat(owner string, rec *wordstatRecord) (model.WordstatConnection, error) {
	secret, err := r.cipher.Decrypt(rec.ClientSecret)
	if err != nil {
		return model.WordstatConnection{}, fmt.Errorf("connection %q client secret: %w", rec.ConnectionID, err)
	}
	return model.WordstatConnection{
		ConnectionMeta: rec.recordMeta.toModel(owner),
		Name:           rec.Name,
		ClientID:       rec.ClientID,
		ClientSecret:   secret,
		RedirectURI:    rec.RedirectURI,
		Description:    rec.Description,
	}, nil
}

func (r *ServiceRepo) decodeTelegram(owner string, rec *telegramRecord) (model.TelegramConnection, error) {
	token, err := r.cipher.Decrypt(rec.BotToken)
	if err != nil {
		return model.TelegramConnection{}, fmt.Errorf("connection %q bot token: %w", rec.ConnectionID, err)
	}
	return model.TelegramConnection{
		ConnectionMeta: rec.recordMeta.toModel(owner),
		BotName:        rec.BotName,
		BotToken:       token,
		ChatID:         rec.ChatID,
		Description:    rec.Description,
	}, nil
}

// serviceKind implements the store operations for one kind of the combined
// document. R is the persisted record, C the domain connection.
type serviceKind[R any, C any] struct {
	repo      *ServiceRepo
	kind      model.Kind
	partition func(*serviceOwner) *map[string]*R
	meta      func(*R) *recordMeta
	decode    func(owner string, rec *R) (C, error)
}

func (k serviceKind[R, C]) records(doc serviceDocument, owner string) map[string]*R {
	o := doc[owner]
	if o == nil {
		return nil
	}
	return *k.partition(o)
}

func (k serviceKind[R, C]) add(ctx context.Context, owner string, build func(meta recordMeta) *R) (C, error) {
	var created *R
	err := k.repo.file.update(ctx, func(doc serviceDocument) (bool, error) {
		o := doc[owner]
		if o == nil {
			o = &serviceOwner{}
			doc[owner] = o
		}
		o.fill()

		partition := *k.partition(o)
		id := nextID(partition, servicePrefix(owner, k.kind))
		created = build(newRecordMeta(id, k.repo.opts.now()))
		partition[id] = created
		doc.fill()
		return true, nil
	})
	if err != nil {
		var zero C
		return zero, fmt.Errorf("add %s connection for %q: %w", k.kind, owner, err)
	}

	connectionsAdded.WithLabelValues(string(k.kind)).Inc()
	k.repo.opts.logger.Info("service connection added",
		"kind", k.kind, "owner", owner, "connection_id", k.meta(created).ConnectionID)

	return k.decode(owner, created)
}

func (k serviceKind[R, C]) list(ctx context.Context, owner string) ([]C, error) {
	var out []C
	err := k.repo.file.view(ctx, func(doc serviceDocument) error {
		records := sortedRecords(livePartition(k.records(doc, owner)), func(rec *R) recordMeta { return *k.meta(rec) })
		out = make([]C, 0, len(records))
		for _, rec := range records {
			conn, err := k.decode(owner, rec)
			if err != nil {
				return err
			}
			out = append(out, conn)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s connections for %q: %w", k.kind, owner, err)
	}
	return out, nil
}

func (k serviceKind[R, C]) get(ctx context.Context, owner, id string) (*C, error) {
	var out *C
	err := k.repo.file.view(ctx, func(doc serviceDocument) error {
		rec := k.records(doc, owner)[id]
		if rec == nil {
			return nil
		}
		conn, err := k.decode(owner, rec)
		if err != nil {
			return err
		}
		out = &conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s connection %q: %w", k.kind, id, err)
	}
	return out, nil
}

// modify runs apply on an existing record and saves. It reports false without
// writing when the record does not exist.
func (k serviceKind[R, C]) modify(ctx context.Context, op, owner, id string, apply func(*R)) (bool, error) {
	var found bool
	err := k.repo.file.update(ctx, func(doc serviceDocument) (bool, error) {
		rec := k.records(doc, owner)[id]
		if rec == nil {
			return false, nil
		}
		found = true
		apply(rec)
		doc.fill()
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("%s %s connection %q: %w", op, k.kind, id, err)
	}
	return found, nil
}

func (k serviceKind[R, C]) update(ctx context.Context, owner, id string, enabled *bool, apply func(*R)) (bool, error) {
	return k.modify(ctx, "update", owner, id, func(rec *R) {
		apply(rec)
		meta := k.meta(rec)
		if enabled != nil {
			meta.setEnabled(*enabled)
		}
		meta.UpdatedAt = isoTimePtr(k.repo.opts.now())
	})
}

func (k serviceKind[R, C]) touch(ctx context.Context, owner, id string) (bool, error) {
	return k.modify(ctx, "touch", owner, id, func(rec *R) {
		k.meta(rec).LastUsed = isoTimePtr(k.repo.opts.now())
	})
}

func (k serviceKind[R, C]) remove(ctx context.Context, owner, id string) (bool, error) {
	var found bool
	err := k.repo.file.update(ctx, func(doc serviceDocument) (bool, error) {
		o := doc[owner]
		if o == nil {
			return false, nil
		}
		partition := *k.partition(o)
		if _, ok := partition[id]; !ok {
			return false, nil
		}
		found = true

		delete(partition, id)
		if o.isEmpty() {
			delete(doc, owner)
		}
		doc.fill()
		return true, nil
	})
	if err != nil {
		return false, fmt.Errorf("delete %s connection %q: %w", k.kind, id, err)
	}
	if found {
		k.repo.opts.logger.Info("service connection deleted", "kind", k.kind, "owner", owner, "connection_id", id)
	}
	return found, nil
}

func (k serviceKind[R, C]) listAllEnabled(ctx context.Context) (map[string]C, error) {
	out := map[string]C{}
	err := k.repo.file.view(ctx, func(doc serviceDocument) error {
		for owner, o := range doc {
			if o == nil {
				continue
			}
			for id, rec := range *k.partition(o) {
				if rec == nil || !k.meta(rec).isEnabled() {
					continue
				}
				conn, err := k.decode(owner, rec)
				if err != nil {
					return err
				}
				out[id] = conn
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list enabled %s connections: %w", k.kind, err)
	}
	return out, nil
}

// Compile-time interface satisfaction checks.
var (
	_ driven.KieStore      = (*KieRepo)(nil)
	_ driven.WordstatStore = (*WordstatRepo)(nil)
	_ driven.TelegramStore = (*TelegramRepo)(nil)
)

// KieRepo implements driven.KieStore on the combined service document.
type KieRepo struct {
	kind serviceKind[kieRecord, model.KieConnection]
}

func (r *KieRepo) Add(ctx context.Context, owner string, in model.NewKieConnection) (model.KieConnection, error) {
	key, err := r.kind.repo.cipher.Encrypt(in.APIKey)
	if err != nil {
		return model.KieConnection{}, fmt.Errorf("encrypt kie api key: %w", err)
	}
	return r.kind.add(ctx, owner, func(meta recordMeta) *kieRecord {
		return &kieRecord{recordMeta: meta, Name: in.Name, APIKey: key, Description: in.Description}
	})
}

func (r *KieRepo) List(ctx context.Context, owner string) ([]model.KieConnection, error) {
	return r.kind.list(ctx, owner)
}

func (r *KieRepo) Get(ctx context.Context, owner, id string) (*model.KieConnection, error) {
	return r.kind.get(ctx, owner, id)
}

func (r *KieRepo) Update(ctx context.Context, owner, id string, patch model.KiePatch) (bool, error) {
	var key string
	if patch.APIKey != nil {
		var err error
		if key, err = r.kind.repo.cipher.Encrypt(*patch.APIKey); err != nil {
			return false, fmt.Errorf("encrypt kie api key: %w", err)
		}
	}
	return r.kind.update(ctx, owner, id, patch.Enabled, func(rec *kieRecord) {
		applyString(&rec.Name, patch.Name)
		if patch.APIKey != nil {
			rec.APIKey = key
		}
		applyString(&rec.Description, patch.Description)
	})
}

func (r *KieRepo) Delete(ctx context.Context, owner, id string) (bool, error) {
	return r.kind.remove(ctx, owner, id)
}

func (r *KieRepo) TouchLastUsed(ctx context.Context, owner, id string) (bool, error) {
	return r.kind.touch(ctx, owner, id)
}

func (r *KieRepo) ListAllEnabled(ctx context.Context) (map[string]model.KieConnection, error) {
	return r.kind.listAllEnabled(ctx)
}

// WordstatRepo implements driven.WordstatStore on the combined service document.
type WordstatRepo struct {
	kind serviceKind[wordstatRecord, model.WordstatConnection]
}

func (r *WordstatRepo) Add(ctx context.Context, owner string, in model.NewWordstatConnection) (model.WordstatConnection, error) {
	secret, err := r.kind.repo.cipher.Encrypt(in.ClientSecret)
	if err != nil {
		return model.WordstatConnection{}, fmt.Errorf("encrypt wordstat client secret: %w", err)
	}
	return r.kind.add(ctx, owner, func(meta recordMeta) *wordstatRecord {
		return &wordstatRecord{
			recordMeta:   meta,
			Name:         in.Name,
			ClientID:     in.ClientID,
			ClientSecret: secret,
			RedirectURI:  in.RedirectURI,
			Description:  in.Description,
		}
	})
}

func (r *WordstatRepo) List(ctx context.Context, owner string) ([]model.WordstatConnection, error) {
	return r.kind.list(ctx, owner)
}

func (r *WordstatRepo) Get(ctx context.Context, owner, id string) (*model.WordstatConnection, error) {
	return r.kind.get(ctx, owner, id)
}

func (r *WordstatRepo) Update(ctx context.Context, owner, id string, patch model.WordstatPatch) (bool, error) {
	var secret string
	if patch.ClientSecret != nil {
		var err error
		if secret, err = r.kind.repo.cipher.Encrypt(*patch.ClientSecret); err != nil {
			return false, fmt.Errorf("encrypt wordstat client secret: %w", err)
		}
	}
	return r.kind.update(ctx, owner, id, patch.Enabled, func(rec *wordstatRecord) {
		applyString(&rec.Name, patch.Name)
		applyString(&rec.ClientID, patch.ClientID)
		if patch.ClientSecret != nil {
			rec.ClientSecret = secret
		}
		applyString(&rec.RedirectURI, patch.RedirectURI)
		applyString(&rec.Description, patch.Description)
	})
}

func (r *WordstatRepo) Delete(ctx context.Context, owner, id string) (bool, error) {
	return r.kind.remove(ctx, owner, id)
}

func (r *WordstatRepo) TouchLastUsed(ctx context.Context, owner, id string) (bool, error) {
	return r.kind.touch(ctx, owner, id)
}

func (r *WordstatRepo) ListAllEnabled(ctx context.Context) (map[string]model.WordstatConnection, error) {
	return r.kind.listAllEnabled(ctx)
}

// TelegramRepo implements driven.TelegramStore on the combined service document.
type TelegramRepo struct {
	kind serviceKind[telegramRecord, model.TelegramConnection]
}

func (r *TelegramRepo) Add(ctx context.Context, owner string, in model.NewTelegramConnection) (model.TelegramConnection, error) {
	token, err := r.kind.repo.cipher.Encrypt(in.BotToken)
	if err != nil {
		return model.TelegramConnection{}, fmt.Errorf("encrypt telegram bot token: %w", err)
	}
	return r.kind.add(ctx, owner, func(meta recordMeta) *telegramRecord {
		return &telegramRecord{
			recordMeta:  meta,
			BotName:     in.BotName,
			BotToken:    token,
			ChatID:      in.ChatID,
			Description: in.Description,
		}
	})
}

func (r *TelegramRepo) List(ctx context.Context, owner string) ([]model.TelegramConnection, error) {
	return r.kind.list(ctx, owner)
}

func (r *TelegramRepo) Get(ctx context.Context, owner, id string) (*model.TelegramConnection, error) {
	return r.kind.get(ctx, owner, id)
}

func (r *TelegramRepo) Update(ctx context.Context, owner, id string, patch model.TelegramPatch) (bool, error) {
	var token string
	if patch.BotToken != nil {
		var err error
		if token, err = r.kind.repo.cipher.Encrypt(*patch.BotToken); err != nil {
			return false, fmt.Errorf("encrypt telegram bot token: %w", err)
		}
	}
	return r.kind.update(ctx, owner, id, patch.Enabled, func(rec *telegramRecord) {
		applyString(&rec.BotName, patch.BotName)
		if patch.BotToken != nil {
			rec.BotToken = token
		}
		applyString(&rec.ChatID, patch.ChatID)
		applyString(&rec.Description, patch.Description)
	})
}

func (r *TelegramRepo) Delete(ctx context.Context, owner, id string) (bool, error) {
	return r.kind.remove(ctx, owner, id)
}

func (r *TelegramRepo) TouchLastUsed(ctx context.Context, owner, id string) (bool, error) {
	return r.kind.touch(ctx, owner, id)
}

func (r *TelegramRepo) ListAllEnabled(ctx context.Context) (map[string]model.TelegramConnection, error) {
	return r.kind.listAllEnabled(ctx)
}
