package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusAvailable    ProductStatus = "available"
	ProductStatusOutOfStock   ProductStatus = "out_of_stock"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// Product is a catalog entry as served by the products API.
type Product struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	Quantity      int                 `json:"quantity"`
	ImageURL      string              `json:"image_url"`
	Status        ProductStatus       `json:"status"`
	CategoryID    int64               `json:"category_id"`
	CategoryName  string              `json:"category_name,omitempty"`
	SellerID      int64               `json:"seller_id"`
	SellerName    string              `json:"seller_name,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Ref captures the product fields a cart line keeps.
func (p Product) Ref() ProductRef {
	return ProductRef{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		Image:         p.ImageURL,
	}
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ProductRef is the snapshot of a product embedded in a cart line.
// It is not linked to later catalog changes.
type ProductRef struct {
	ID            int64
	Name          string
	Price         decimal.Decimal
	DiscountPrice decimal.NullDecimal
	Image         string
}

// EffectivePrice is the discount price when present and lower than the
// list price, otherwise the list price.
func (p ProductRef) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.LessThan(p.Price) {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}
