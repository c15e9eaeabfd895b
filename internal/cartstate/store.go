// Package cartstate holds a component's view of the cart: the last cart the
// server returned, loading and message state, and the mutations that
// replace it.
package cartstate

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/leedontbeshy/unimerch-client/internal/apiclient"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
	"github.com/leedontbeshy/unimerch-client/internal/notify"
)

var ErrCheckoutUnavailable = errors.New("checkout is not available in this view")

// CartAPI is the remote cart. *cart.Client implements it.
type CartAPI interface {
	Fetch(ctx context.Context) (domain.Cart, error)
	Add(ctx context.Context, productID int64, quantity int) (domain.Cart, error)
	SetQuantity(ctx context.Context, productID int64, quantity int) (domain.Cart, error)
	Remove(ctx context.Context, productID int64) (domain.Cart, error)
	Clear(ctx context.Context) (domain.Cart, error)
}

// OrderPlacer turns a cart into an order. *order.Client implements it.
type OrderPlacer interface {
	Create(ctx context.Context, cart domain.Cart, details domain.CheckoutDetails) (domain.Order, error)
}

type Options struct {
	// AutoFetch makes Mount load the cart.
	AutoFetch bool
	// SuppressAuthErrors shows an empty cart instead of an error when the
	// session has expired. The transport handles the sign-out itself.
	SuppressAuthErrors bool
	Locale             string
}

type Store struct {
	carts    CartAPI
	orders   OrderPlacer
	notifier notify.Broadcaster
	messages *Messages
	logger   *zap.Logger
	opts     Options

	group   singleflight.Group
	changes *notify.Notifier

	mu       sync.RWMutex
	cart     domain.Cart
	inflight int
	errMsg   string
	success  string
	issued   uint64
	applied  uint64
}

func NewStore(carts CartAPI, orders OrderPlacer, notifier notify.Broadcaster, logger *zap.Logger, opts Options) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		carts:    carts,
		orders:   orders,
		notifier: notifier,
		messages: NewMessages(opts.Locale),
		logger:   logger,
		opts:     opts,
		changes:  notify.New(),
		cart:     domain.EmptyCart(),
	}
}

// Mount loads the cart when AutoFetch is set.
func (s *Store) Mount(ctx context.Context) error {
	if !s.opts.AutoFetch {
		return nil
	}
	_, err := s.Refresh(ctx)
	return err
}

// Refresh re-fetches the cart. Concurrent calls share one request, which
// keeps running when the caller that started it gives up.
func (s *Store) Refresh(ctx context.Context) (domain.Cart, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan("cart", func() (any, error) {
		ctx, cancel := context.WithTimeout(shared, apiclient.DefaultTimeout)
		defer cancel()

		seq := s.begin()
		defer s.end()

		cart, err := s.carts.Fetch(ctx)
		if err != nil {
			if s.suppressed(err) {
				s.apply(seq, domain.EmptyCart(), "")
				return domain.EmptyCart(), nil
			}
			s.fail(MsgLoadFailed, err)
			return domain.Cart{}, err
		}
		s.apply(seq, cart, "")
		return cart, nil
	})

	select {
	case <-ctx.Done():
		return domain.Cart{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Cart{}, res.Err
		}
		return res.Val.(domain.Cart).Clone(), nil
	}
}

func (s *Store) Add(ctx context.Context, productID int64, quantity int) (domain.Cart, error) {
	return s.mutate(ctx, MsgAddFailed, s.messages.Text(MsgAdded), func(ctx context.Context) (domain.Cart, error) {
		return s.carts.Add(ctx, productID, quantity)
	})
}

// SetQuantity sets an absolute quantity; zero or less removes the line.
func (s *Store) SetQuantity(ctx context.Context, productID int64, quantity int) (domain.Cart, error) {
	return s.mutate(ctx, MsgUpdateFailed, "", func(ctx context.Context) (domain.Cart, error) {
		return s.carts.SetQuantity(ctx, productID, quantity)
	})
}

func (s *Store) IncreaseQuantity(ctx context.Context, productID int64, current int) (domain.Cart, error) {
	return s.SetQuantity(ctx, productID, current+1)
}

// DecreaseQuantity removes the line when it reaches zero.
func (s *Store) DecreaseQuantity(ctx context.Context, productID int64, current int) (domain.Cart, error) {
	return s.SetQuantity(ctx, productID, max(current-1, 0))
}

func (s *Store) Remove(ctx context.Context, productID int64) (domain.Cart, error) {
	return s.mutate(ctx, MsgRemoveFailed, "", func(ctx context.Context) (domain.Cart, error) {
		return s.carts.Remove(ctx, productID)
	})
}

func (s *Store) Clear(ctx context.Context) (domain.Cart, error) {
	return s.mutate(ctx, MsgClearFailed, "", s.carts.Clear)
}

// Checkout reads the server's cart, places an order for it and empties
// the cache without re-fetching. Lines added by other components since
// the last read are part of the order.
func (s *Store) Checkout(ctx context.Context, details domain.CheckoutDetails) (domain.Order, error) {
	if s.orders == nil {
		return domain.Order{}, ErrCheckoutUnavailable
	}
	seq := s.begin()
	defer s.end()

	cart, err := s.carts.Fetch(ctx)
	if err != nil {
		if !s.suppressed(err) {
			s.fail(MsgCheckoutFailed, err)
		}
		return domain.Order{}, err
	}

	o, err := s.orders.Create(ctx, cart, details)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCart) {
			s.apply(seq, cart, "")
		}
		s.fail(MsgCheckoutFailed, err)
		return domain.Order{}, err
	}

	s.reset(seq, s.messages.Text(MsgOrderPlaced, o.OrderNumber()))
	s.logger.Info("checkout completed", zap.Int64("order_id", o.ID), zap.Int("lines", len(o.Items)))
	s.broadcast()
	return o, nil
}

func (s *Store) mutate(ctx context.Context, failMsg, successMsg string, call func(context.Context) (domain.Cart, error)) (domain.Cart, error) {
	seq := s.begin()
	defer s.end()

	cart, err := call(ctx)
	if err != nil {
		if !s.suppressed(err) {
			s.fail(failMsg, err)
		}
		return domain.Cart{}, err
	}
	s.apply(seq, cart, successMsg)
	s.broadcast()
	return cart.Clone(), nil
}

func (s *Store) broadcast() {
	if s.notifier != nil {
		s.notifier.Broadcast()
	}
}

func (s *Store) suppressed(err error) bool {
	return s.opts.SuppressAuthErrors && errors.Is(err, apiclient.ErrUnauthorized)
}

// begin marks a request in flight and returns its issue number.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	s.issued++
	return s.issued
}

func (s *Store) end() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
	s.changes.Broadcast()
}

// apply replaces the cached cart unless a later-issued response has
// already been applied.
func (s *Store) apply(seq uint64, cart domain.Cart, success string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		s.logger.Debug("dropping stale cart response", zap.Uint64("seq", seq), zap.Uint64("applied", s.applied))
		return
	}
	s.applied = seq
	s.cart = cart.Clone()
	s.errMsg = ""
	s.success = success
}

// reset empties the cached cart after a placed order, even when a response
// issued during checkout was applied first.
func (s *Store) reset(seq uint64, success string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = max(s.applied, seq)
	s.cart = domain.EmptyCart()
	s.errMsg = ""
	s.success = success
}

func (s *Store) fail(fallback string, err error) {
	msg := s.messages.describe(fallback, err)
	s.logger.Warn("cart operation failed", zap.String("message", msg), zap.Error(err))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
	s.success = ""
}

// Watch signals whenever loading, cart or message state may have changed.
func (s *Store) Watch() *notify.Subscription {
	return s.changes.Subscribe()
}

func (s *Store) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.TotalItems()
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// ErrMessage is the localized text of the last failure, or "".
func (s *Store) ErrMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Store) SuccessMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.success
}
