package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

const defaultFeaturedLimit = 8

type ProductHandler struct {
	products repository.ProductRepository
	timeout  time.Duration
}

func NewProductHandler(products repository.ProductRepository, timeout time.Duration) *ProductHandler {
	return &ProductHandler{products: products, timeout: timeout}
}

type PaginationDTO struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type ProductPageDTO struct {
	Products   []domain.Product `json:"products"`
	Pagination PaginationDTO    `json:"pagination"`
}

// GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r.URL.Query())
	if !ok {
		return
	}
	h.page(w, r, f)
}

// GET /api/search/products
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, ok := parseFilter(w, q)
	if !ok {
		return
	}
	f.Search = q.Get("q")
	f.Status, f.SellerID, f.Sort = "", 0, ""
	h.page(w, r, f)
}

// GET /api/products/seller/{seller_id}
func (h *ProductHandler) SellerProducts(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := idParam(w, r, "seller_id")
	if !ok {
		return
	}
	f, ok := parseFilter(w, r.URL.Query())
	if !ok {
		return
	}
	f.SellerID = sellerID
	h.page(w, r, f)
}

// GET /api/products/featured
func (h *ProductHandler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultFeaturedLimit
	}
	products, err := h.products.FeaturedProducts(ctx, limit)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusOK, "", products)
}

// GET /api/products/{product_id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := idParam(w, r, "product_id")
	if !ok {
		return
	}
	product, err := h.products.GetProduct(ctx, id)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusOK, "", product)
}

// GET /api/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.products.ListCategories(ctx)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondData(w, http.StatusOK, "", categories)
}

func (h *ProductHandler) page(w http.ResponseWriter, r *http.Request, f repository.ProductFilter) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, total, err := h.products.ListProducts(ctx, f)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	page, limit := f.Page, f.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	respondData(w, http.StatusOK, "", ProductPageDTO{
		Products: products,
		Pagination: PaginationDTO{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	})
}

func parseFilter(w http.ResponseWriter, q url.Values) (repository.ProductFilter, bool) {
	var f repository.ProductFilter
	ints := []struct {
		name string
		dst  *int
	}{{"page", &f.Page}, {"limit", &f.Limit}}
	for _, p := range ints {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, p.name+" must be an integer")
				return f, false
			}
			*p.dst = n
		}
	}
	ids := []struct {
		name string
		dst  *int64
	}{{"category_id", &f.CategoryID}, {"seller_id", &f.SellerID}}
	for _, p := range ids {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, p.name+" must be an integer")
				return f, false
			}
			*p.dst = n
		}
	}
	prices := []struct {
		name string
		dst  *decimal.NullDecimal
	}{{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice}}
	for _, p := range prices {
		if v := q.Get(p.name); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, p.name+" must be a number")
				return f, false
			}
			*p.dst = decimal.NewNullDecimal(d)
		}
	}
	f.Status = domain.ProductStatus(q.Get("status"))
	f.Search = q.Get("search")
	f.Sort = q.Get("sort_by")
	return f, true
}
