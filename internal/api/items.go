package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/lifecycle"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// ItemsHandler handles item report endpoints.
type ItemsHandler struct {
	DB          *sql.DB
	Coordinator *lifecycle.Coordinator
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseItemFilter(r)
	if err != nil {
		writeError(w, "list items", err)
		return
	}

	items, total, err := store.ListItems(r.Context(), h.DB, filter)
	if err != nil {
		writeError(w, "list items", err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	filter.Normalize()
	jsonResponse(w, http.StatusOK, model.ItemPage{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Pages: (total + filter.Limit - 1) / filter.Limit,
	})
}

func parseItemFilter(r *http.Request) (model.ItemFilter, error) {
	q := r.URL.Query()
	f := model.ItemFilter{
		Search:   q.Get("search"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
	}

	switch f.Status {
	case "", model.ItemStatusLost, model.ItemStatusFound, model.ItemStatusRecovered:
	default:
		return f, lifecycle.NewError(lifecycle.KindValidation, "status must be one of: lost, found, recovered")
	}

	ints := []struct {
		name string
		dst  func(int64)
	}{
		{"user_id", func(v int64) { f.OwnerID = v }},
		{"page", func(v int64) { f.Page = int(v) }},
		{"limit", func(v int64) { f.Limit = int(v) }},
	}
	for _, p := range ints {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || v < 1 {
			return f, lifecycle.NewError(lifecycle.KindValidation, "%s must be a positive integer", p.name)
		}
		p.dst(v)
	}
	return f, nil
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, "get item", err)
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, "get item", err)
		return
	}
	if item == nil {
		jsonError(w, lifecycle.KindNotFound, "item not found")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewItem
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "create item", err)
		return
	}

	actor, _ := GetActor(r.Context())
	item, err := h.Coordinator.CreateItem(r.Context(), actor, req)
	if err != nil {
		writeError(w, "create item", err)
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, "update item", err)
		return
	}

	var patch model.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, "update item", err)
		return
	}

	actor, _ := GetActor(r.Context())
	item, err := h.Coordinator.UpdateItem(r.Context(), actor, id, patch)
	if err != nil {
		writeError(w, "update item", err)
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, "delete item", err)
		return
	}

	actor, _ := GetActor(r.Context())
	if err := h.Coordinator.DeleteItem(r.Context(), actor, id); err != nil {
		writeError(w, "delete item", err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, "upload image", err)
		return
	}

	// Leave room for the multipart envelope around the file.
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+64<<10)

	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		jsonError(w, lifecycle.KindValidation, "file too large or invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, lifecycle.KindValidation, "image file required")
		return
	}
	defer file.Close()

	actor, _ := GetActor(r.Context())
	item, err := h.Coordinator.SetItemImage(r.Context(), actor, id, file)
	if err != nil {
		writeError(w, "upload image", err)
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, "get image", err)
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, "get image", err)
		return
	}
	if data == nil {
		jsonError(w, lifecycle.KindNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
