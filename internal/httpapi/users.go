package httpapi

import (
	"errors"
	"net/http"

	"github.com/safar/techshop-orders/internal/database"
	"github.com/safar/techshop-orders/internal/models"
)

type userHandlers struct {
	users UserDirectory
}

type createUserBody struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Name  string `json:"name" validate:"required,max=255"`
	Role  string `json:"role" validate:"omitempty,oneof=USER CUSTOMER ADMIN DISABLED user customer admin disabled"`
}

func (h *userHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body createUserBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(ctx, w, err)
		return
	}

	user, err := h.users.CreateUser(ctx, body.Email, body.Name, models.NormalizeRole(body.Role))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, user)
}

func (h *userHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	user, err := h.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			writeErrorStatus(ctx, w, http.StatusNotFound, err)
			return
		}
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, user)
}

func (h *userHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, pageSize := pagination(r)

	result, err := h.users.ListUsers(ctx, page, pageSize)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, result)
}
