package cartstate

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/leedontbeshy/unimerch-client/internal/domain"
)

// Message keys. The English text doubles as the key.
const (
	MsgLoadFailed      = "Could not load your cart. Please try again."
	MsgAdded           = "Added to your cart!"
	MsgAddFailed       = "Could not add the product to your cart. Please try again."
	MsgUpdateFailed    = "Could not update the quantity. Please try again."
	MsgRemoveFailed    = "Could not remove the product from your cart."
	MsgClearFailed     = "Could not clear your cart."
	MsgCheckoutFailed  = "Checkout failed."
	MsgOrderPlaced     = "Order placed! Order number: %s"
	MsgEmptyCart       = "Your cart is empty."
	MsgNotInCart       = "That product is not in your cart."
	MsgInvalidQuantity = "Quantity must be at least 1."
	MsgMissingPhone    = "Please enter a phone number."
	MsgMissingAddress  = "Please enter a shipping address."
)

var vietnamese = map[string]string{
	MsgLoadFailed:      "Không thể tải giỏ hàng. Vui lòng thử lại.",
	MsgAdded:           "Đã thêm sản phẩm vào giỏ hàng!",
	MsgAddFailed:       "Không thể thêm sản phẩm vào giỏ hàng. Vui lòng thử lại.",
	MsgUpdateFailed:    "Không thể cập nhật số lượng. Vui lòng thử lại.",
	MsgRemoveFailed:    "Không thể xóa sản phẩm khỏi giỏ hàng.",
	MsgClearFailed:     "Không thể xóa giỏ hàng.",
	MsgCheckoutFailed:  "Thanh toán thất bại.",
	MsgOrderPlaced:     "Đặt hàng thành công! Mã đơn: %s",
	MsgEmptyCart:       "Giỏ hàng của bạn đang trống",
	MsgNotInCart:       "Không tìm thấy sản phẩm trong giỏ hàng",
	MsgInvalidQuantity: "Số lượng phải lớn hơn 0",
	MsgMissingPhone:    "Vui lòng nhập số điện thoại",
	MsgMissingAddress:  "Vui lòng nhập địa chỉ giao hàng",
}

var supported = []language.Tag{language.Vietnamese, language.English}

var messageCatalog = mustBuildCatalog(vietnamese)

func mustBuildCatalog(translations map[string]string) catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range translations {
		if err := b.SetString(language.Vietnamese, key, text); err != nil {
			panic(fmt.Sprintf("cartstate: message %q: %v", key, err))
		}
		if err := b.SetString(language.English, key, key); err != nil {
			panic(fmt.Sprintf("cartstate: message %q: %v", key, err))
		}
	}
	return b
}

// Messages renders user-facing strings for one locale.
type Messages struct {
	p *message.Printer
}

// NewMessages picks the closest supported locale, defaulting to Vietnamese.
func NewMessages(locale string) *Messages {
	tag := language.Vietnamese
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			_, idx, conf := language.NewMatcher(supported).Match(parsed)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return &Messages{p: message.NewPrinter(tag, message.Catalog(messageCatalog))}
}

func (m *Messages) Text(key string, args ...any) string {
	return m.p.Sprintf(key, args...)
}

// describe picks the message shown for a failed operation. Domain
// validation errors get their own text; server transition messages are
// shown unchanged; everything else gets the operation's generic text.
func (m *Messages) describe(fallback string, err error) string {
	var transition *domain.TransitionError
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return m.Text(MsgEmptyCart)
	case errors.Is(err, domain.ErrNotInCart):
		return m.Text(MsgNotInCart)
	case errors.Is(err, domain.ErrInvalidQuantity):
		return m.Text(MsgInvalidQuantity)
	case errors.Is(err, domain.ErrMissingPhone):
		return m.Text(MsgMissingPhone)
	case errors.Is(err, domain.ErrMissingShippingAddress):
		return m.Text(MsgMissingAddress)
	case errors.As(err, &transition) && transition.Message != "":
		return transition.Message
	}
	return m.Text(fallback)
}
