package adminapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type handler struct {
	deps Dependencies
}

// killClient sets the kill flag on a registered client by id (§6
// "set kill-flag on a client by thread/task id" — ids are uuid.UUID here).
func (h *handler) killClient(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid client id")
		return
	}
	if !h.deps.Server.Clients.KillByID(id) {
		fail(w, http.StatusNotFound, "no such client")
		return
	}
	ok(w, nil)
}

// reload triggers the §4.8 reload flag.
func (h *handler) reload(w http.ResponseWriter, r *http.Request) {
	h.deps.Server.RequestReload()
	ok(w, nil)
}

// resetCounters zeroes one account's ECM/cache counters.
func (h *handler) resetCounters(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	acc, found := h.deps.Server.Store.Lookup(username)
	if !found {
		fail(w, http.StatusNotFound, "no such account")
		return
	}
	acc.ResetCounters()
	ok(w, nil)
}

// snapshot returns the live client registry.
func (h *handler) snapshot(w http.ResponseWriter, r *http.Request) {
	ok(w, h.deps.Server.Clients.Snapshots())
}

// accountCounters returns one account's counter snapshot.
func (h *handler) accountCounters(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	acc, found := h.deps.Server.Store.Lookup(username)
	if !found {
		fail(w, http.StatusNotFound, "no such account")
		return
	}
	ok(w, acc.Counters())
}

// shutdown drains and stops the gateway.
func (h *handler) shutdown(w http.ResponseWriter, r *http.Request) {
	ok(w, nil)
	if h.deps.Shutdown != nil {
		go h.deps.Shutdown()
	}
}

// restart triggers the restart-in-place supplemented feature.
func (h *handler) restart(w http.ResponseWriter, r *http.Request) {
	ok(w, nil)
	if h.deps.Restart != nil {
		go h.deps.Restart()
	}
}
