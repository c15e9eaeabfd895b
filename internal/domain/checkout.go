package domain

import (
	"fmt"
	"strings"
)

// PaymentMethod is the method a shopper picks at checkout.
type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDebitCard    PaymentMethod = "debit_card"
	PaymentMoMo         PaymentMethod = "momo"
	PaymentZaloPay      PaymentMethod = "zalopay"
	PaymentVNPay        PaymentMethod = "vnpay"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentPayPal       PaymentMethod = "paypal"
	PaymentStripe       PaymentMethod = "stripe"
)

// OrderPaymentMethod is the coarse method recorded on an order.
type OrderPaymentMethod string

const (
	OrderPaymentCOD     OrderPaymentMethod = "COD"
	OrderPaymentBanking OrderPaymentMethod = "Banking"
	OrderPaymentCard    OrderPaymentMethod = "Credit Card"
	OrderPaymentEWallet OrderPaymentMethod = "E-Wallet"
)

var orderPaymentMethods = map[PaymentMethod]OrderPaymentMethod{
	PaymentCOD:          OrderPaymentCOD,
	PaymentBankTransfer: OrderPaymentBanking,
	PaymentCreditCard:   OrderPaymentCard,
	PaymentDebitCard:    OrderPaymentCard,
	PaymentMoMo:         OrderPaymentEWallet,
	PaymentZaloPay:      OrderPaymentEWallet,
	PaymentVNPay:        OrderPaymentEWallet,
	PaymentPayPal:       OrderPaymentEWallet,
	PaymentStripe:       OrderPaymentEWallet,
}

// OrderMethod maps m to the method stored on the order. Unknown methods
// fall back to cash on delivery.
func (m PaymentMethod) OrderMethod() OrderPaymentMethod {
	if om, ok := orderPaymentMethods[m]; ok {
		return om
	}
	return OrderPaymentCOD
}

// ParseOrderPaymentMethod accepts an order method label or a checkout
// payment method id. Empty means cash on delivery.
func ParseOrderPaymentMethod(s string) (OrderPaymentMethod, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OrderPaymentCOD, nil
	}
	for _, om := range []OrderPaymentMethod{OrderPaymentCOD, OrderPaymentBanking, OrderPaymentCard, OrderPaymentEWallet} {
		if strings.EqualFold(s, string(om)) {
			return om, nil
		}
	}
	if om, ok := orderPaymentMethods[PaymentMethod(strings.ToLower(s))]; ok {
		return om, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, s)
}

// PaymentOption is one entry of the checkout payment picker.
type PaymentOption struct {
	Method      PaymentMethod
	Name        string
	Description string
}

var paymentOptions = []PaymentOption{
	{PaymentCOD, "Thanh toán khi nhận hàng (COD)", "Thanh toán bằng tiền mặt khi nhận hàng"},
	{PaymentMoMo, "Ví MoMo", "Thanh toán qua ví điện tử MoMo"},
	{PaymentZaloPay, "ZaloPay", "Thanh toán qua ví ZaloPay"},
	{PaymentVNPay, "VNPay", "Thanh toán qua cổng VNPay"},
	{PaymentBankTransfer, "Chuyển khoản ngân hàng", "Chuyển khoản trực tiếp qua ngân hàng"},
	{PaymentCreditCard, "Thẻ tín dụng", "Thanh toán bằng thẻ tín dụng Visa/Mastercard"},
	{PaymentDebitCard, "Thẻ ghi nợ", "Thanh toán bằng thẻ ghi nợ nội địa"},
}

// PaymentOptions lists the methods offered at checkout, COD first.
func PaymentOptions() []PaymentOption {
	out := make([]PaymentOption, len(paymentOptions))
	copy(out, paymentOptions)
	return out
}

// CheckoutDetails is the delivery and payment information sent with an
// order.
type CheckoutDetails struct {
	ShippingAddress string
	Phone           string
	PaymentMethod   PaymentMethod
	Notes           string
}

// Normalize trims the fields and checks the required ones. An empty
// payment method becomes cash on delivery.
func (d CheckoutDetails) Normalize() (CheckoutDetails, error) {
	d.ShippingAddress = strings.TrimSpace(d.ShippingAddress)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Notes = strings.TrimSpace(d.Notes)
	if d.PaymentMethod == "" {
		d.PaymentMethod = PaymentCOD
	}

	if d.Phone == "" {
		return d, ErrMissingPhone
	}
	if d.ShippingAddress == "" {
		return d, ErrMissingShippingAddress
	}
	if _, ok := orderPaymentMethods[d.PaymentMethod]; !ok {
		return d, fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, d.PaymentMethod)
	}
	return d, nil
}
