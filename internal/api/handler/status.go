// Package handler implements the status endpoints
package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/parksync/internal/api/apierr"
	"github.com/mcoot/parksync/internal/api/response"
	"github.com/mcoot/parksync/internal/model"
	"github.com/mcoot/parksync/internal/protocol"
	"github.com/mcoot/parksync/internal/session"
)

// StatusProvider is the read-only view of a session the API serves. Every
// method must be safe to call from HTTP goroutines.
type StatusProvider interface {
	Status() session.Status
	Role() session.Role
	GameInfo() protocol.GameInfo
	Players() []model.Player
	Groups() *model.GroupList
}

// StatusHandler serves session status
type StatusHandler struct {
	provider StatusProvider
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(provider StatusProvider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

func (h *StatusHandler) hosting() error {
	if h.provider.Status() != session.StatusConnected {
		return apierr.ErrNotHosting
	}
	return nil
}

// Info handles GET /api/v1/info
func (h *StatusHandler) Info(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.InfoFromGameInfo(h.provider.GameInfo(), h.provider.Status().String()))
}

// Players handles GET /api/v1/players
func (h *StatusHandler) Players(w http.ResponseWriter, r *http.Request) {
	if err := h.hosting(); err != nil {
		apierr.WriteError(w, err)
		return
	}
	players := h.provider.Players()
	resp := response.PlayersResponse{Players: make([]response.Player, 0, len(players))}
	for _, p := range players {
		resp.Players = append(resp.Players, response.PlayerFromModel(p))
	}
	response.JSON(w, http.StatusOK, resp)
}

// Player handles GET /api/v1/players/{id}
func (h *StatusHandler) Player(w http.ResponseWriter, r *http.Request) {
	if err := h.hosting(); err != nil {
		apierr.WriteError(w, err)
		return
	}
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("player id must be between 0 and 255"))
		return
	}
	for _, p := range h.provider.Players() {
		if uint8(p.ID) == id {
			response.JSON(w, http.StatusOK, response.PlayerFromModel(p))
			return
		}
	}
	apierr.WriteError(w, model.ErrPlayerNotFound)
}

// Groups handles GET /api/v1/groups
func (h *StatusHandler) Groups(w http.ResponseWriter, r *http.Request) {
	if err := h.hosting(); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GroupsFromModel(h.provider.Groups()))
}

// Group handles GET /api/v1/groups/{id}
func (h *StatusHandler) Group(w http.ResponseWriter, r *http.Request) {
	if err := h.hosting(); err != nil {
		apierr.WriteError(w, err)
		return
	}
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("group id must be between 0 and 255"))
		return
	}
	groups := h.provider.Groups()
	g := groups.Find(model.GroupID(id))
	if g == nil {
		apierr.WriteError(w, model.ErrGroupNotFound)
		return
	}
	response.JSON(w, http.StatusOK, response.GroupFromModel(*g, groups.Default))
}

func parseID(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	return uint8(n), err
}
