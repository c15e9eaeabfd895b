// Package catalog reads products and categories from the storefront API.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/leedontbeshy/unimerch-client/internal/apiclient"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

const DefaultFeaturedLimit = 8

type Doer interface {
	Do(ctx context.Context, method, path string, body, out any, opts ...apiclient.RequestOption) error
}

type SortOrder string

const (
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortNameAsc   SortOrder = "name_asc"
	SortNameDesc  SortOrder = "name_desc"
	SortNewest    SortOrder = "newest"
)

// Filters narrows a product listing. Zero values are omitted.
type Filters struct {
	Page       int
	Limit      int
	CategoryID int64
	Status     domain.ProductStatus
	Search     string
	MinPrice   decimal.NullDecimal
	MaxPrice   decimal.NullDecimal
	SellerID   int64
	Sort       SortOrder
}

func (f Filters) values() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.CategoryID > 0 {
		q.Set("category_id", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.MinPrice.Valid {
		q.Set("min_price", f.MinPrice.Decimal.String())
	}
	if f.MaxPrice.Valid {
		q.Set("max_price", f.MaxPrice.Decimal.String())
	}
	if f.SellerID > 0 {
		q.Set("seller_id", strconv.FormatInt(f.SellerID, 10))
	}
	if f.Sort != "" {
		q.Set("sort_by", string(f.Sort))
	}
	return q
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type Page struct {
	Products   []domain.Product `json:"products"`
	Pagination Pagination       `json:"pagination"`
}

type Client struct {
	api Doer
}

func NewClient(api Doer) *Client {
	return &Client{api: api}
}

func (c *Client) List(ctx context.Context, f Filters) (Page, error) {
	return c.page(ctx, "/products", f.values())
}

func (c *Client) Featured(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	var products []domain.Product
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.api.Do(ctx, http.MethodGet, "/products/featured", nil, &products, apiclient.WithQuery(q)); err != nil {
		return nil, fmt.Errorf("featured products: %w", err)
	}
	return products, nil
}

func (c *Client) Get(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, &p)
	if errors.Is(err, apiclient.ErrNotFound) {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// Search queries the search endpoint. Only paging, category and price
// filters apply.
func (c *Client) Search(ctx context.Context, query string, f Filters) (Page, error) {
	narrowed := Filters{
		Page:       f.Page,
		Limit:      f.Limit,
		CategoryID: f.CategoryID,
		MinPrice:   f.MinPrice,
		MaxPrice:   f.MaxPrice,
	}
	q := narrowed.values()
	q.Set("q", query)
	return c.page(ctx, "/search/products", q)
}

func (c *Client) BySeller(ctx context.Context, sellerID int64, page, limit int) (Page, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	q := Filters{Page: page, Limit: limit}.values()
	return c.page(ctx, fmt.Sprintf("/products/seller/%d", sellerID), q)
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.api.Do(ctx, http.MethodGet, "/categories", nil, &categories); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (c *Client) page(ctx context.Context, path string, q url.Values) (Page, error) {
	var p Page
	if err := c.api.Do(ctx, http.MethodGet, path, nil, &p, apiclient.WithQuery(q)); err != nil {
		return Page{}, fmt.Errorf("list %s: %w", path, err)
	}
	if p.Products == nil {
		p.Products = []domain.Product{}
	}
	return p, nil
}
