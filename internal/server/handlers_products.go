package server

import (
	"net/http"
	"strconv"
	"strings"
)

// webPageLimit caps product listings requested through the web surface.
const webPageLimit = 100

// handleProductList handles GET /api/products?limit=&offset=.
func (s *Server) handleProductList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := queryInt(r, "limit", 10)
	if limit > webPageLimit {
		limit = webPageLimit
	}
	offset := queryInt(r, "offset", 0)

	var fields []string
	if raw := r.URL.Query().Get("fields"); raw != "" {
		fields = strings.Split(raw, ",")
	}

	page, err := s.app.Cafe24.ListProducts(r.Context(), limit, offset, fields, nil)
	if err != nil {
		WriteDomainError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// routeProducts dispatches /api/products/{no} and its sub-resources.
func (s *Server) routeProducts(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/products/")
	switch {
	case strings.HasSuffix(rest, "/price"):
		s.handleProductPrice(w, r)
	case strings.HasSuffix(rest, "/stock"):
		s.handleProductStock(w, r)
	case strings.HasSuffix(rest, "/variants"):
		s.handleProductVariants(w, r)
	case strings.Contains(rest, "/"):
		WriteError(w, http.StatusNotFound, "Unknown product resource")
	default:
		s.handleProduct(w, r)
	}
}

// handleProduct handles GET and PUT /api/products/{no}.
func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	productNo := PathParam(r, "/api/products/", "")

	switch r.Method {
	case http.MethodGet:
		product, err := s.app.Cafe24.GetProduct(r.Context(), productNo)
		if err != nil {
			WriteDomainError(w, s.logger, err)
			return
		}
		if product == nil {
			WriteError(w, http.StatusNotFound, "Product not found")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"product": product})

	case http.MethodPut:
		var body struct {
			Updates map[string]any `json:"updates"`
			ShopNo  int            `json:"shop_no"`
		}
		if !DecodeJSON(w, r, &body) {
			return
		}
		if err := s.app.Cafe24.UpdateProduct(r.Context(), productNo, body.Updates, body.ShopNo); err != nil {
			WriteDomainError(w, s.logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"success": true, "product_no": productNo})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut)
	}
}

// handleProductPrice handles POST /api/products/{no}/price.
func (s *Server) handleProductPrice(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	productNo := PathParam(r, "/api/products/", "/price")

	var body struct {
		Price       string `json:"price"`
		RetailPrice string `json:"retail_price"`
		SupplyPrice string `json:"supply_price"`
		ShopNo      int    `json:"shop_no"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}

	if err := s.app.Cafe24.UpdateProductPrice(r.Context(), productNo, body.Price, body.RetailPrice, body.SupplyPrice, body.ShopNo); err != nil {
		WriteDomainError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "product_no": productNo, "price": body.Price})
}

// handleProductStock handles POST /api/products/{no}/stock.
func (s *Server) handleProductStock(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	productNo := PathParam(r, "/api/products/", "/stock")

	var body struct {
		Quantity int `json:"quantity"`
		ShopNo   int `json:"shop_no"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}

	if err := s.app.Cafe24.UpdateProductStock(r.Context(), productNo, body.Quantity, body.ShopNo); err != nil {
		WriteDomainError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "product_no": productNo, "quantity": body.Quantity})
}

// handleProductVariants handles GET /api/products/{no}/variants.
func (s *Server) handleProductVariants(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	productNo := PathParam(r, "/api/products/", "/variants")

	variants, err := s.app.Cafe24.GetProductVariants(r.Context(), productNo)
	if err != nil {
		WriteDomainError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"variants": variants, "count": len(variants)})
}

// handleBulkPrice handles POST /api/products/bulk-price.
func (s *Server) handleBulkPrice(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body struct {
		Updates   map[string]string `json:"updates"`
		BatchSize int               `json:"batch_size"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}

	result, err := s.app.Cafe24.BulkUpdatePrices(r.Context(), body.Updates, body.BatchSize)
	if err != nil {
		WriteDomainError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleProductSearch handles GET /api/search?q=&type=&limit=.
func (s *Server) handleProductSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query().Get("q")
	searchType := r.URL.Query().Get("type")
	limit := queryInt(r, "limit", 20)

	products, err := s.app.Cafe24.SearchProducts(r.Context(), query, searchType, limit)
	if err != nil {
		WriteDomainError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"query":    query,
		"products": products,
		"count":    len(products),
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
