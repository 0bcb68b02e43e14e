package draft

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Collaborator ports. The ERP backend implements all four; tests substitute
// small fakes per port.

type OrderNumberSource interface {
	NextOrderNumber(ctx context.Context) (int64, error)
}

type ClientLookup interface {
	DefaultClient(ctx context.Context) (*Client, error)
}

type PaymentMethodRegistry interface {
	ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error)
}

type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order Draft) (*Confirmation, error)
}

type Backend interface {
	OrderNumberSource
	ClientLookup
	PaymentMethodRegistry
	OrderSubmitter
}

// Confirmation is the server's acknowledgement of a persisted order.
type Confirmation struct {
	OrderID   int64     `json:"id"`
	Number    int64     `json:"number"`
	Total     string    `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// Controller owns one Draft and runs its lifecycle against the backend:
// initialize a fresh draft, apply operator commands, finalize atomically,
// reset. All commands are safe for concurrent use; the presentation layer
// subscribes to state changes via OnChange instead of the controller
// reaching into rendering.
type Controller struct {
	mu      sync.Mutex
	backend Backend

	draft    *Draft
	methods  map[int64]PaymentMethod
	onChange func(Draft)

	finalizing bool
}

func NewController(backend Backend) *Controller {
	return &Controller{
		backend: backend,
		draft:   New(),
		methods: map[int64]PaymentMethod{},
	}
}

// OnChange registers the state-changed hook. The callback receives a copy of
// the draft and runs synchronously after every successful mutation.
func (c *Controller) OnChange(fn func(Draft)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Initialize prepares a fresh draft: asks the server for the next order
// number, then loads the default client and the payment method registry.
// The order number is required; the other two fail softly so the operator
// can still work and pick a client manually, with finalize blocked until a
// client is set.
func (c *Controller) Initialize(ctx context.Context) error {
	number, err := c.backend.NextOrderNumber(ctx)
	if err != nil {
		return err
	}

	fresh := New()
	fresh.OrderNumber = number

	if client, err := c.backend.DefaultClient(ctx); err == nil && client != nil {
		fresh.Client = client
	}

	methods := map[int64]PaymentMethod{}
	if list, err := c.backend.ListPaymentMethods(ctx); err == nil {
		for _, m := range list {
			methods[m.ID] = m
		}
	}

	c.mu.Lock()
	c.draft = fresh
	c.methods = methods
	c.finalizing = false
	c.mu.Unlock()

	c.notify()
	return nil
}

// Draft returns a copy of the current state for rendering.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Snapshot()
}

func (c *Controller) AddLineItem(p ProductSnapshot) {
	c.mu.Lock()
	c.draft.AddLineItem(p)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) SetLineItemQuantity(index int, qty decimal.Decimal) error {
	c.mu.Lock()
	err := c.draft.SetLineItemQuantity(index, qty)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

func (c *Controller) RemoveLineItem(index int) error {
	c.mu.Lock()
	err := c.draft.RemoveLineItem(index)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

// AddPayment resolves the method against the registry loaded at initialize
// time, then records the tender.
func (c *Controller) AddPayment(methodID int64, amount, tendered decimal.Decimal) error {
	c.mu.Lock()
	method, ok := c.methods[methodID]
	if !ok {
		c.mu.Unlock()
		return &ValidationError{Err: ErrUnknownPaymentMethod}
	}
	err := c.draft.AddPayment(method, amount, tendered)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

func (c *Controller) RemovePayment(index int) error {
	c.mu.Lock()
	err := c.draft.RemovePayment(index)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

func (c *Controller) SetDiscount(v decimal.Decimal) error {
	c.mu.Lock()
	err := c.draft.SetDiscount(v)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

func (c *Controller) SetSurcharge(v decimal.Decimal) error {
	c.mu.Lock()
	err := c.draft.SetSurcharge(v)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

func (c *Controller) SetAdjustments(discount, surcharge decimal.Decimal) error {
	c.mu.Lock()
	err := c.draft.SetAdjustments(discount, surcharge)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify()
	return nil
}

func (c *Controller) SetClient(client Client) {
	c.mu.Lock()
	c.draft.SetClient(client)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) SetNotes(notes string) {
	c.mu.Lock()
	c.draft.SetNotes(notes)
	c.mu.Unlock()
	c.notify()
}

// PaymentMethods returns the registry loaded at initialize time.
func (c *Controller) PaymentMethods() []PaymentMethod {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := make([]PaymentMethod, 0, len(c.methods))
	for _, m := range c.methods {
		list = append(list, m)
	}
	return list
}

// Finalize validates the draft and submits it to the server as one atomic
// request. While a submission is in flight every further Finalize call is
// rejected with ErrFinalizeInFlight; a duplicate submission could
// double-decrement stock server-side. On success the draft is discarded and
// a fresh one initialized; on any failure the draft is preserved unchanged
// so the operator can correct and retry.
func (c *Controller) Finalize(ctx context.Context) (*Confirmation, error) {
	c.mu.Lock()
	if c.draft.OrderNumber == 0 {
		c.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if c.finalizing {
		c.mu.Unlock()
		return nil, ErrFinalizeInFlight
	}
	if err := c.draft.ValidateForFinalize(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.finalizing = true
	snapshot := c.draft.Snapshot()
	c.mu.Unlock()

	confirmation, err := c.backend.SubmitOrder(ctx, snapshot)

	c.mu.Lock()
	c.finalizing = false
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}

	if err := c.Initialize(ctx); err != nil {
		// The order is persisted; only the next draft failed to set up.
		return confirmation, err
	}
	return confirmation, nil
}

// Reset discards the current draft and prepares a fresh one.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.draft = New()
	c.finalizing = false
	c.mu.Unlock()
	return c.Initialize(ctx)
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	var cp Draft
	if fn != nil {
		cp = c.draft.Snapshot()
	}
	c.mu.Unlock()
	if fn != nil {
		fn(cp)
	}
}
