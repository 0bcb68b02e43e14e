// Package draft holds the in-memory order being assembled at the point of
// sale: line items, payments, running totals and the rules that decide when
// the order may be finalized. It has no transport or rendering concerns; the
// Controller wires it to the ERP backend.
package draft

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// paymentEpsilon is the tolerance for reconciling the payment total against
// the order total. Exact equality is impractical with decimal amounts typed
// by an operator, so up to one cent of drift is accepted.
var paymentEpsilon = decimal.New(1, -2)

// ProductSnapshot is what the catalog search returns for one product. Price
// and stock are captured at add-time and never re-fetched; the stock value is
// the ceiling for later quantity edits until the server re-checks on finalize.
type ProductSnapshot struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	EAN         string          `json:"ean"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Stock       decimal.Decimal `json:"stock"`
}

type Client struct {
	ID           int64  `json:"id"`
	RazaoSocial  string `json:"razao_social"`
	NomeFantasia string `json:"nome_fantasia"`
	Documento    string `json:"documento"`
}

type PaymentMethod struct {
	ID           int64  `json:"id"`
	Description  string `json:"description"`
	AllowsChange bool   `json:"allows_change"`
}

type LineItem struct {
	ProductID   int64           `json:"product_id"`
	Code        string          `json:"code"`
	EAN         string          `json:"ean"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Stock       decimal.Decimal `json:"stock"`
}

type Payment struct {
	MethodID     int64           `json:"method_id"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Change       decimal.Decimal `json:"change"`
	AllowsChange bool            `json:"allows_change"`
}

// Draft is the not-yet-persisted order. It is a plain state object: every
// mutator leaves it unchanged when it returns an error, and totals are
// recomputed after every successful mutation. Insertion order of items and
// payments is display order.
type Draft struct {
	OrderNumber int64           `json:"order_number"`
	Client      *Client         `json:"client"`
	Items       []LineItem      `json:"items"`
	Payments    []Payment       `json:"payments"`
	GrossTotal  decimal.Decimal `json:"gross_total"`
	Discount    decimal.Decimal `json:"discount"`
	Surcharge   decimal.Decimal `json:"surcharge"`
	NetTotal    decimal.Decimal `json:"net_total"`
	Notes       string          `json:"notes"`
}

func New() *Draft {
	return &Draft{
		Items:      []LineItem{},
		Payments:   []Payment{},
		GrossTotal: decimal.Zero,
		Discount:   decimal.Zero,
		Surcharge:  decimal.Zero,
		NetTotal:   decimal.Zero,
	}
}

// AddLineItem appends the product with quantity 1, or increments the
// quantity of the existing row for the same product. Adding is never
// rejected; stock is only enforced on quantity edits and at finalize.
func (d *Draft) AddLineItem(p ProductSnapshot) {
	for i := range d.Items {
		if d.Items[i].ProductID == p.ID {
			d.Items[i].Quantity = d.Items[i].Quantity.Add(decimal.NewFromInt(1))
			d.Items[i].LineTotal = d.Items[i].Quantity.Mul(d.Items[i].UnitPrice)
			d.recomputeTotals()
			return
		}
	}

	qty := decimal.NewFromInt(1)
	d.Items = append(d.Items, LineItem{
		ProductID:   p.ID,
		Code:        p.Code,
		EAN:         p.EAN,
		Description: p.Description,
		Unit:        p.Unit,
		Quantity:    qty,
		UnitPrice:   p.Price,
		LineTotal:   qty.Mul(p.Price),
		Stock:       p.Stock,
	})
	d.recomputeTotals()
}

// SetLineItemQuantity replaces the quantity of one item. The new quantity
// must be positive and cannot exceed the stock snapshot captured when the
// product was added.
func (d *Draft) SetLineItemQuantity(index int, qty decimal.Decimal) error {
	if index < 0 || index >= len(d.Items) {
		return ErrItemNotFound
	}

	item := &d.Items[index]

	if qty.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Err: ErrInvalidQuantity}
	}
	if qty.GreaterThan(item.Stock) {
		return &ValidationError{
			Err: ErrInsufficientStock,
			Details: fmt.Sprintf("%s: available %s, requested %s",
				item.Description, item.Stock.StringFixed(3), qty.StringFixed(3)),
		}
	}

	item.Quantity = qty
	item.LineTotal = item.Quantity.Mul(item.UnitPrice)
	d.recomputeTotals()
	return nil
}

func (d *Draft) RemoveLineItem(index int) error {
	if index < 0 || index >= len(d.Items) {
		return ErrItemNotFound
	}
	d.Items = append(d.Items[:index], d.Items[index+1:]...)
	d.recomputeTotals()
	return nil
}

// AddPayment records one tender against the order. When the method allows
// change, the change is computed against the amount still due before this
// payment and frozen at that value; it is never recomputed afterwards, the
// way a register tape records each tender once. Overpayment is accepted, it
// raises the change rather than rejecting the payment.
func (d *Draft) AddPayment(method PaymentMethod, amount, tendered decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Err: ErrInvalidAmount}
	}

	change := decimal.Zero
	if method.AllowsChange {
		remaining := d.NetTotal.Sub(d.paymentTotal())
		change = tendered.Sub(remaining)
		if change.LessThan(decimal.Zero) {
			change = decimal.Zero
		}
	}

	d.Payments = append(d.Payments, Payment{
		MethodID:     method.ID,
		Description:  method.Description,
		Amount:       amount,
		Change:       change,
		AllowsChange: method.AllowsChange,
	})
	return nil
}

// RemovePayment drops one tender. The change recorded on the remaining
// payments stays as it was when each was added.
func (d *Draft) RemovePayment(index int) error {
	if index < 0 || index >= len(d.Payments) {
		return ErrPaymentNotFound
	}
	d.Payments = append(d.Payments[:index], d.Payments[index+1:]...)
	return nil
}

// SetDiscount replaces the manual order-level discount. Absent inputs are
// coerced to zero at the HTTP boundary before reaching here.
func (d *Draft) SetDiscount(v decimal.Decimal) error {
	if v.LessThan(decimal.Zero) {
		return &ValidationError{Err: ErrInvalidAmount, Details: "discount cannot be negative"}
	}
	d.Discount = v
	d.recomputeTotals()
	return nil
}

func (d *Draft) SetSurcharge(v decimal.Decimal) error {
	if v.LessThan(decimal.Zero) {
		return &ValidationError{Err: ErrInvalidAmount, Details: "surcharge cannot be negative"}
	}
	d.Surcharge = v
	d.recomputeTotals()
	return nil
}

// SetAdjustments replaces discount and surcharge together. Both values are
// validated before either is applied; on rejection the draft keeps both
// previous values.
func (d *Draft) SetAdjustments(discount, surcharge decimal.Decimal) error {
	if discount.LessThan(decimal.Zero) {
		return &ValidationError{Err: ErrInvalidAmount, Details: "discount cannot be negative"}
	}
	if surcharge.LessThan(decimal.Zero) {
		return &ValidationError{Err: ErrInvalidAmount, Details: "surcharge cannot be negative"}
	}
	d.Discount = discount
	d.Surcharge = surcharge
	d.recomputeTotals()
	return nil
}

func (d *Draft) SetClient(c Client) {
	d.Client = &c
}

func (d *Draft) SetNotes(notes string) {
	d.Notes = notes
}

func (d *Draft) recomputeTotals() {
	gross := decimal.Zero
	for _, item := range d.Items {
		gross = gross.Add(item.LineTotal)
	}
	d.GrossTotal = gross
	d.NetTotal = gross.Sub(d.Discount).Add(d.Surcharge)
}

func (d *Draft) paymentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// AmountDue is the display indicator of how much is still owed, clamped to
// zero when the order is fully or over paid.
func (d *Draft) AmountDue() decimal.Decimal {
	due := d.NetTotal.Sub(d.paymentTotal())
	if due.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return due
}

// CanFinalize mirrors the enabled state of the finalize action: the unclamped
// remainder is within tolerance and there is at least one item.
func (d *Draft) CanFinalize() bool {
	due := d.NetTotal.Sub(d.paymentTotal())
	return due.LessThanOrEqual(paymentEpsilon) && len(d.Items) > 0
}

// ValidateForFinalize is a pure check of every finalize precondition, in
// order: client, items, payments, payment reconciliation, per-item stock.
// It returns the first violated rule and never mutates the draft.
func (d *Draft) ValidateForFinalize() error {
	if d.Client == nil || d.Client.ID == 0 {
		return &ValidationError{Err: ErrMissingClient}
	}
	if len(d.Items) == 0 {
		return &ValidationError{Err: ErrEmptyOrder}
	}
	if len(d.Payments) == 0 {
		return &ValidationError{Err: ErrMissingPayment}
	}

	diff := d.paymentTotal().Sub(d.NetTotal).Abs()
	if diff.GreaterThan(paymentEpsilon) {
		return &ValidationError{
			Err: ErrPaymentMismatch,
			Details: fmt.Sprintf("paid %s, order total %s",
				d.paymentTotal().StringFixed(2), d.NetTotal.StringFixed(2)),
		}
	}

	for _, item := range d.Items {
		if item.Quantity.GreaterThan(item.Stock) {
			return &ValidationError{
				Err: ErrInsufficientStock,
				Details: fmt.Sprintf("%s: available %s, requested %s",
					item.Description, item.Stock.StringFixed(3), item.Quantity.StringFixed(3)),
			}
		}
	}

	return nil
}

// Snapshot returns a deep copy safe to hand to rendering or serialization while
// the original keeps mutating.
func (d *Draft) Snapshot() Draft {
	cp := *d
	cp.Items = append([]LineItem(nil), d.Items...)
	cp.Payments = append([]Payment(nil), d.Payments...)
	if d.Client != nil {
		client := *d.Client
		cp.Client = &client
	}
	return cp
}
