package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/examenapp/examen-api/internal/store"
)

type createProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
}

func (p *createProductRequest) validate() string {
	switch {
	case p.Name == "":
		return "name is required"
	case p.Category == "":
		return "category is required"
	case p.Price.IsNegative():
		return "price must not be negative"
	case p.Stock < 0:
		return "stock must not be negative"
	}
	return ""
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		s.respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	product, err := store.CreateProduct(r.Context(), s.db, store.CreateProductRequest{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, "product created", product)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	q := r.URL.Query()

	result, err := store.ListProducts(r.Context(), s.db, store.ProductFilter{
		Search:          q.Get("search"),
		Category:        q.Get("category"),
		IncludeInactive: q.Get("include_inactive") == "true",
	}, page, limit)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "products retrieved", result)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), s.db)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "categories retrieved", categories)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := store.GetProduct(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "product retrieved", product)
}

type updateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"image_url"`
	IsActive    *bool            `json:"is_active"`
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		s.respondError(w, http.StatusUnprocessableEntity, "price must not be negative")
		return
	}
	if req.Stock != nil && *req.Stock < 0 {
		s.respondError(w, http.StatusUnprocessableEntity, "stock must not be negative")
		return
	}

	product, err := store.UpdateProduct(r.Context(), s.db, id, store.UpdateProductRequest{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
	})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "product updated", product)
}

type adjustStockRequest struct {
	Stock   int `json:"stock"`
	Version int `json:"version"`
}

// handleAdjustStock sets an absolute stock level; the client echoes the
// version it read, and a concurrent change bumps it and fails the write.
func (s *Server) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Stock < 0 {
		s.respondError(w, http.StatusUnprocessableEntity, "stock must not be negative")
		return
	}

	if err := store.AdjustStock(r.Context(), s.db, id, req.Stock, req.Version); err != nil {
		s.respondStoreError(w, err)
		return
	}

	product, err := store.GetProduct(r.Context(), s.db, id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "stock adjusted", product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	if err := store.DeleteProduct(r.Context(), s.db, id); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, "product deleted", nil)
}
