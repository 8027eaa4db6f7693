package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/cart-offers/internal/domain/offer"
)

// GetUserSegment handles GET /api/v1/user_segment?user_id=N.
func (h *Handler) GetUserSegment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		mapError(ctx, w, required("user_id"))
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		mapError(ctx, w, &offer.ValidationError{Field: "user_id", Reason: "must be an integer"})
		return
	}

	seg, err := h.svc.GetSegment(ctx, userID)
	if err != nil {
		mapError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("segment", func(e *jx.Encoder) { e.Str(string(seg)) })
		})
	})
}

// SetUserSegment handles POST /api/v1/user_segment.
func (h *Handler) SetUserSegment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := h.readBody(w, r)
	if err != nil {
		mapError(ctx, w, err)
		return
	}

	var body setSegmentBody
	if err := body.Decode(data); err != nil {
		mapError(ctx, w, err)
		return
	}
	userID, seg, err := body.Request()
	if err != nil {
		mapError(ctx, w, err)
		return
	}

	if err := h.svc.SetSegment(ctx, userID, seg); err != nil {
		mapError(ctx, w, err)
		return
	}
	writeSuccess(w)
}
