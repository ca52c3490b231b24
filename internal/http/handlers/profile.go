package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/realty-auth/internal/errors"
	"github.com/pribylovaa/realty-auth/internal/http/middleware"
	"github.com/pribylovaa/realty-auth/internal/service"
)

// Profile отдаёт данные текущего пользователя.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthenticated)
		return
	}

	writeJSON(w, http.StatusOK, profileFrom(p.User))
}
