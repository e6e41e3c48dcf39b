package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

// connectionStore is the CRUD subset shared by every connection store port.
type connectionStore[C, N, P any] interface {
	Add(ctx context.Context, owner string, in N) (C, error)
	List(ctx context.Context, owner string) ([]C, error)
	Get(ctx context.Context, owner, id string) (*C, error)
	Update(ctx context.Context, owner, id string, patch P) (bool, error)
	Delete(ctx context.Context, owner, id string) (bool, error)
}

// createRequest is a validated create body convertible to the store input.
type createRequest[N any] interface {
	toNew() N
}

// patchRequest is a validated PATCH body convertible to a sparse store patch.
type patchRequest[P any] interface {
	toPatch() P
}

// kindRoutes serves the CRUD routes of one connection kind.
type kindRoutes interface {
	list(w http.ResponseWriter, r *http.Request)
	get(w http.ResponseWriter, r *http.Request)
	create(w http.ResponseWriter, r *http.Request)
	update(w http.ResponseWriter, r *http.Request)
	remove(w http.ResponseWriter, r *http.Request)
}

type connectionRoutes[C, N, P any, CR createRequest[N], PR patchRequest[P]] struct {
	kind    model.Kind
	store   connectionStore[C, N, P]
	respond func(C) any

	// changed is called with the id of an updated or deleted connection.
	changed func(id string)
	logger  *slog.Logger
}

func (c *connectionRoutes[C, N, P, CR, PR]) list(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")

	conns, err := c.store.List(r.Context(), owner)
	if err != nil {
		writeStoreError(w, c.logger, "list "+string(c.kind)+" connections", err, "owner", owner)
		return
	}

	resp := make([]any, 0, len(conns))
	for _, conn := range conns {
		resp = append(resp, c.respond(conn))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *connectionRoutes[C, N, P, CR, PR]) get(w http.ResponseWriter, r *http.Request) {
	owner, id := r.PathValue("owner"), r.PathValue("id")

	conn, err := c.store.Get(r.Context(), owner, id)
	if err != nil {
		writeStoreError(w, c.logger, "get "+string(c.kind)+" connection", err, "owner", owner, "connection_id", id)
		return
	}
	if conn == nil {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	writeJSON(w, http.StatusOK, c.respond(*conn))
}

func (c *connectionRoutes[C, N, P, CR, PR]) create(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")

	var req CR
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := c.store.Add(r.Context(), owner, req.toNew())
	if err != nil {
		writeStoreError(w, c.logger, "add "+string(c.kind)+" connection", err, "owner", owner)
		return
	}
	writeJSON(w, http.StatusCreated, c.respond(conn))
}

func (c *connectionRoutes[C, N, P, CR, PR]) update(w http.ResponseWriter, r *http.Request) {
	owner, id := r.PathValue("owner"), r.PathValue("id")

	var req PR
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := c.store.Update(r.Context(), owner, id, req.toPatch())
	if err != nil {
		writeStoreError(w, c.logger, "update "+string(c.kind)+" connection", err, "owner", owner, "connection_id", id)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	c.notifyChanged(id)

	// Respond with the stored state so callers see normalized fields.
	c.get(w, r)
}

func (c *connectionRoutes[C, N, P, CR, PR]) remove(w http.ResponseWriter, r *http.Request) {
	owner, id := r.PathValue("owner"), r.PathValue("id")

	ok, err := c.store.Delete(r.Context(), owner, id)
	if err != nil {
		writeStoreError(w, c.logger, "delete "+string(c.kind)+" connection", err, "owner", owner, "connection_id", id)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}
	c.notifyChanged(id)

	w.WriteHeader(http.StatusNoContent)
}

func (c *connectionRoutes[C, N, P, CR, PR]) notifyChanged(id string) {
	if c.changed != nil {
		c.changed(id)
	}
}

// writeStoreError maps connection store failures to responses. Details stay
// in the log; the body only names the failure class.
func writeStoreError(w http.ResponseWriter, logger *slog.Logger, op string, err error, attrs ...any) {
	logger.Error("failed to "+op, append(attrs, "error", err)...)

	switch {
	case errors.Is(err, driven.ErrDecryption):
		writeError(w, http.StatusInternalServerError, "stored credentials cannot be decrypted")
	case errors.Is(err, driven.ErrCorruptDocument):
		writeError(w, http.StatusInternalServerError, "connection store is corrupt")
	case errors.Is(err, driven.ErrPersistence):
		writeError(w, http.StatusServiceUnavailable, "connection store is not writable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
