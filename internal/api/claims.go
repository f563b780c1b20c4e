package api

import (
	"net/http"

	"github.com/erazemk/najdeno/internal/lifecycle"
)

// ClaimsHandler handles claim endpoints. Every rule lives in the coordinator.
type ClaimsHandler struct {
	Coordinator *lifecycle.Coordinator
}

type createClaimRequest struct {
	ItemID  int64  `json:"item_id"`
	Message string `json:"message"`
}

type updateClaimRequest struct {
	Status  *string `json:"status"`
	Message *string `json:"message"`
}

// List handles GET /api/claims.
func (h *ClaimsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := GetActor(r.Context())
	lists, err := h.Coordinator.ListClaimsForActor(r.Context(), actor)
	if err != nil {
		writeError(w, "list claims", err)
		return
	}
	jsonResponse(w, http.StatusOK, lists)
}

// Get handles GET /api/claims/{id}.
func (h *ClaimsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "claim")
	if err != nil {
		writeError(w, "get claim", err)
		return
	}

	actor, _ := GetActor(r.Context())
	claim, err := h.Coordinator.GetClaim(r.Context(), actor, id)
	if err != nil {
		writeError(w, "get claim", err)
		return
	}
	jsonResponse(w, http.StatusOK, claim)
}

// Create handles POST /api/claims.
func (h *ClaimsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClaimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "submit claim", err)
		return
	}
	if req.ItemID < 1 {
		jsonError(w, lifecycle.KindValidation, "item_id is required")
		return
	}

	actor, _ := GetActor(r.Context())
	claim, err := h.Coordinator.SubmitClaim(r.Context(), actor, req.ItemID, req.Message)
	if err != nil {
		writeError(w, "submit claim", err)
		return
	}
	jsonResponse(w, http.StatusCreated, claim)
}

// Update handles PUT /api/claims/{id}. A status is a decision by the item's
// owner; a message alone is an edit by the requester.
func (h *ClaimsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "claim")
	if err != nil {
		writeError(w, "update claim", err)
		return
	}

	var req updateClaimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "update claim", err)
		return
	}

	actor, _ := GetActor(r.Context())
	switch {
	case req.Status != nil:
		claim, err := h.Coordinator.DecideClaim(r.Context(), actor, id, *req.Status)
		if err != nil {
			writeError(w, "decide claim", err)
			return
		}
		jsonResponse(w, http.StatusOK, claim)
	case req.Message != nil:
		claim, err := h.Coordinator.UpdateClaimMessage(r.Context(), actor, id, *req.Message)
		if err != nil {
			writeError(w, "update claim message", err)
			return
		}
		jsonResponse(w, http.StatusOK, claim)
	default:
		jsonError(w, lifecycle.KindValidation, "status or message is required")
	}
}

// Delete handles DELETE /api/claims/{id}.
func (h *ClaimsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "claim")
	if err != nil {
		writeError(w, "cancel claim", err)
		return
	}

	actor, _ := GetActor(r.Context())
	if err := h.Coordinator.CancelClaim(r.Context(), actor, id); err != nil {
		writeError(w, "cancel claim", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "claim cancelled"})
}
