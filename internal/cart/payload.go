package cart

import (
	"github.com/shopspring/decimal"

	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

type cartItemPayload struct {
	ID                   int64               `json:"id"`
	ProductID            int64               `json:"product_id"`
	Quantity             int                 `json:"quantity"`
	ProductName          string              `json:"product_name"`
	ProductPrice         decimal.Decimal     `json:"product_price"`
	ProductDiscountPrice decimal.NullDecimal `json:"product_discount_price"`
	ProductImage         *string             `json:"product_image"`
	ProductStatus        string              `json:"product_status"`
	AvailableQuantity    int                 `json:"available_quantity"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
}

type summaryPayload struct {
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

// cartPayload distinguishes "no items field" (nil) from an empty list.
type cartPayload struct {
	Items   *[]cartItemPayload `json:"items"`
	Summary *summaryPayload    `json:"summary"`
}

func (p cartPayload) cart() domain.Cart {
	if p.Items == nil {
		return domain.EmptyCart()
	}

	items := make([]domain.CartItem, 0, len(*p.Items))
	for _, it := range *p.Items {
		image := DefaultImage
		if it.ProductImage != nil && *it.ProductImage != "" {
			image = *it.ProductImage
		}
		items = append(items, domain.CartItem{
			Product: domain.ProductRef{
				ID:            it.ProductID,
				Name:          it.ProductName,
				Price:         it.ProductPrice,
				DiscountPrice: it.ProductDiscountPrice,
				Image:         image,
			},
			Quantity: it.Quantity,
		})
	}

	cart := domain.Cart{Items: items}
	if p.Summary != nil {
		cart.TotalPrice = p.Summary.TotalAmount
	} else {
		cart.TotalPrice = cart.DerivedTotal()
	}
	return cart
}
