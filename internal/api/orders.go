package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/examenapp/examen-api/internal/auth"
	"github.com/examenapp/examen-api/internal/models"
	"github.com/examenapp/examen-api/internal/store"
)

type orderItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type createOrderRequest struct {
	UserID          int64            `json:"user_id"`
	ShippingAddress string           `json:"shipping_address"`
	Notes           string           `json:"notes"`
	Items           []orderItemInput `json:"items"`
}

func (o *createOrderRequest) validate() string {
	if o.ShippingAddress == "" {
		return "shipping address is required"
	}
	if len(o.Items) == 0 {
		return "order must contain at least one item"
	}
	seen := make(map[int64]bool, len(o.Items))
	for _, item := range o.Items {
		if item.ProductID <= 0 {
			return "item product_id is required"
		}
		if item.Quantity < 1 {
			return "item quantity must be a positive integer"
		}
		if seen[item.ProductID] {
			return "items must not repeat a product"
		}
		seen[item.ProductID] = true
	}
	return ""
}

// handleCreateOrder places an order for the user named in the body, or for
// the authenticated caller when the body omits one.
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID == 0 {
		if claims, ok := auth.ClaimsFrom(r.Context()); ok {
			req.UserID = claims.UserID
		}
	}
	if req.UserID == 0 {
		s.respondError(w, http.StatusBadRequest, "an order user must be selected")
		return
	}
	if msg := req.validate(); msg != "" {
		s.respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	items := make([]store.OrderItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, store.OrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := store.CreateOrder(r.Context(), s.db, store.CreateOrderRequest{
		UserID:          req.UserID,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		Items:           items,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, "order created", order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	q := r.URL.Query()

	userID, _ := strconv.ParseInt(q.Get("user_id"), 10, 64)

	result, err := store.ListOrders(r.Context(), s.db, store.OrderFilter{
		UserID: userID,
		Status: q.Get("status"),
	}, page, limit)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "orders retrieved", result)
}

// handleMyOrders is the cursor-paginated listing for the calling user.
func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	result, err := store.ListUserOrdersCursor(r.Context(), s.db, claims.UserID,
		r.URL.Query().Get("cursor"), limit)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "orders retrieved", result)
}

func (s *Server) handleOrderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetOrderStats(r.Context(), s.db)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "order stats retrieved", stats)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := store.GetOrder(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "order retrieved", order)
}

type updateOrderRequest struct {
	Status          *string `json:"status"`
	ShippingAddress *string `json:"shipping_address"`
	Notes           *string `json:"notes"`
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != nil && !models.ValidOrderStatus(*req.Status) {
		s.respondError(w, http.StatusUnprocessableEntity, "unknown order status")
		return
	}
	if req.ShippingAddress != nil && *req.ShippingAddress == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "shipping address must not be empty")
		return
	}

	order, err := store.UpdateOrder(r.Context(), s.db, id, store.UpdateOrderRequest{
		Status:          req.Status,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "order updated", order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	if err := store.CancelOrder(r.Context(), s.db, id); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "order cancelled", nil)
}
