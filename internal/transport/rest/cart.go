package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cartcraft/storefront/internal/cart"
	perrors "github.com/cartcraft/storefront/internal/errors"
	"github.com/cartcraft/storefront/pkg/web"
)

// CartRequest carries the client-held cart lines.
type CartRequest struct {
	Items []cart.Line `json:"items" validate:"dive"`
}

// CheckoutRequest is a cart plus the shopper's contact details.
type CheckoutRequest struct {
	Customer cart.Customer `json:"customer"`
	Items    []cart.Line   `json:"items" validate:"dive"`
}

// CartResponse is the normalized cart with its derived totals.
type CartResponse struct {
	Items []cart.Line `json:"items"`
	Count int         `json:"count"`
	cart.Totals
}

// CartTotals normalizes the posted cart and computes its totals. Nothing is stored.
func (h *Handler) CartTotals(w http.ResponseWriter, r *http.Request) {
	var req CartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding cart", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateBody(w, r, req, "Invalid cart") {
		return
	}
	c := cart.FromLines(req.Items)
	web.RespondJSON(w, h.logger, http.StatusOK, CartResponse{
		Items:  c.Lines(),
		Count:  c.Count(),
		Totals: c.Totals(),
	})
}

// Checkout turns the posted cart into a receipt.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding checkout", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateBody(w, r, req, "Invalid checkout details") {
		return
	}

	receipt, err := cart.FromLines(req.Items).Checkout(req.Customer, h.now())
	if err != nil {
		if errors.Is(err, perrors.ErrEmptyCart) {
			web.RespondError(w, h.logger, http.StatusBadRequest, "Cart is empty")
			return
		}
		h.logger.ErrorContext(r.Context(), "Error during checkout", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to checkout")
		return
	}
	h.logger.InfoContext(r.Context(), "Checkout completed", "order", receipt.OrderNumber, "items", len(receipt.Items))
	web.RespondJSON(w, h.logger, http.StatusOK, receipt)
}
