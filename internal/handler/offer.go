package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// SetOffer handles POST /api/v1/offer.
func (h *Handler) SetOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := h.readBody(w, r)
	if err != nil {
		mapError(ctx, w, err)
		return
	}

	var body setOfferBody
	if err := body.Decode(data); err != nil {
		mapError(ctx, w, err)
		return
	}
	req, err := body.Request()
	if err != nil {
		mapError(ctx, w, err)
		return
	}

	if err := h.svc.SetOffer(ctx, req); err != nil {
		mapError(ctx, w, err)
		return
	}
	writeSuccess(w)
}

// ApplyOffer handles POST /api/v1/cart/apply_offer.
func (h *Handler) ApplyOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := h.readBody(w, r)
	if err != nil {
		mapError(ctx, w, err)
		return
	}

	var body applyOfferBody
	if err := body.Decode(data); err != nil {
		mapError(ctx, w, err)
		return
	}
	req, err := body.Request()
	if err != nil {
		mapError(ctx, w, err)
		return
	}

	res, err := h.svc.ApplyOffer(ctx, req)
	if err != nil {
		mapError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("cart_value", func(e *jx.Encoder) {
				e.Float64(res.CartValue.InexactFloat64())
			})
		})
	})
}
