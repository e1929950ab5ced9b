package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
)

// ProfileSource lists and resolves business-type profiles.
type ProfileSource interface {
	Get(typeID string) (*profile.Profile, error)
	All() []*profile.Profile
}

type ProfilesHandler struct {
	profiles ProfileSource
}

func NewProfilesHandler(p ProfileSource) *ProfilesHandler {
	return &ProfilesHandler{profiles: p}
}

// List returns every configured profile.
// GET /api/v1/profiles
func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.profiles.All()
	defs := make([]profile.Definition, len(all))
	for i, p := range all {
		defs[i] = p.Definition()
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": defs})
}

// Get returns one profile by id or alias.
// GET /api/v1/profiles/{type}
func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(chi.URLParam(r, "type"))
	if errors.Is(err, profile.ErrUnknownType) {
		writeError(w, http.StatusNotFound, err.Error(), "")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, p.Definition())
}
