package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// UsersHandler handles user profile endpoints.
type UsersHandler struct {
	DB          *sql.DB
	Coordinator *lifecycle.Coordinator
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(w, "list users", err)
		return
	}

	profiles := make([]*model.PublicUser, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Public())
	}
	jsonResponse(w, http.StatusOK, profiles)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, "get user", err)
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, "get user", err)
		return
	}
	if user == nil {
		jsonError(w, lifecycle.KindNotFound, "user not found")
		return
	}

	jsonResponse(w, http.StatusOK, user.Public())
}

// Update handles PUT /api/users/{id}. Users may only edit their own profile.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, "update user", err)
		return
	}

	actor, _ := GetActor(r.Context())
	if actor.ID != id {
		jsonError(w, lifecycle.KindForbidden, "you may only edit your own profile")
		return
	}

	var req model.ProfileUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "update user", err)
		return
	}
	if req.Name != nil {
		*req.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		*req.Email = normalizeEmail(*req.Email)
	}
	if err := model.Validate(req); err != nil {
		jsonError(w, lifecycle.KindValidation, err.Error())
		return
	}

	var hash string
	if req.Password != nil {
		if err := model.ValidatePassword(*req.Password); err != nil {
			jsonError(w, lifecycle.KindValidation, err.Error())
			return
		}
		if hash, err = auth.HashPassword(*req.Password); err != nil {
			writeError(w, "update user", err)
			return
		}
	}

	var user *model.User
	err = store.WithTx(r.Context(), h.DB, func(tx *sql.Tx) error {
		var err error
		user, err = store.GetUser(r.Context(), tx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return lifecycle.NewError(lifecycle.KindNotFound, "user not found")
		}

		if req.Name != nil {
			user.Name = *req.Name
		}
		if req.Email != nil {
			user.Email = *req.Email
		}
		err = store.UpdateUser(r.Context(), tx, id, user.Name, user.Email)
		if errors.Is(err, store.ErrDuplicate) {
			return lifecycle.NewError(lifecycle.KindInvalidOperation, "email is already registered")
		}
		if err != nil {
			return err
		}

		if hash != "" {
			return store.UpdateUserPassword(r.Context(), tx, id, hash)
		}
		return nil
	})
	if err != nil {
		writeError(w, "update user", err)
		return
	}

	slog.Info("user updated", "user", id, "password_changed", hash != "")
	jsonResponse(w, http.StatusOK, user.Public())
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user")
	if err != nil {
		writeError(w, "delete user", err)
		return
	}

	actor, _ := GetActor(r.Context())
	if err := h.Coordinator.DeleteUser(r.Context(), actor, id); err != nil {
		writeError(w, "delete user", err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
