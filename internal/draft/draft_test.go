package draft

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func product(id int64, price, stock string) ProductSnapshot {
	return ProductSnapshot{
		ID:          id,
		Code:        "P",
		Description: "product",
		Unit:        "UN",
		Price:       dec(price),
		Stock:       dec(stock),
	}
}

func cashMethod() PaymentMethod {
	return PaymentMethod{ID: 1, Description: "Dinheiro", AllowsChange: true}
}

func cardMethod() PaymentMethod {
	return PaymentMethod{ID: 2, Description: "Cartão", AllowsChange: false}
}

// --- Line items ---

func TestAddLineItemMergesSameProduct(t *testing.T) {
	d := New()

	d.AddLineItem(product(1, "10.00", "5"))
	d.AddLineItem(product(1, "10.00", "5"))
	d.AddLineItem(product(2, "3.50", "8"))

	if len(d.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(d.Items))
	}
	if !d.Items[0].Quantity.Equal(dec("2")) {
		t.Errorf("expected quantity 2, got %s", d.Items[0].Quantity)
	}
	if !d.Items[0].LineTotal.Equal(dec("20.00")) {
		t.Errorf("expected line total 20.00, got %s", d.Items[0].LineTotal)
	}
	if !d.GrossTotal.Equal(dec("23.50")) {
		t.Errorf("expected gross total 23.50, got %s", d.GrossTotal)
	}
}

func TestGrossTotalAlwaysSumOfLineTotals(t *testing.T) {
	d := New()
	d.AddLineItem(product(1, "10.00", "10"))
	d.AddLineItem(product(2, "5.25", "10"))
	d.AddLineItem(product(3, "0.99", "10"))

	if err := d.SetLineItemQuantity(1, dec("4")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.RemoveLineItem(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := decimal.Zero
	for _, item := range d.Items {
		sum = sum.Add(item.LineTotal)
	}
	if !d.GrossTotal.Equal(sum) {
		t.Errorf("gross total %s does not match item sum %s", d.GrossTotal, sum)
	}

	// Recomputation is idempotent.
	before := d.GrossTotal
	d.recomputeTotals()
	d.recomputeTotals()
	if !d.GrossTotal.Equal(before) || !d.NetTotal.Equal(before) {
		t.Errorf("recompute changed totals: gross %s net %s", d.GrossTotal, d.NetTotal)
	}
}

func TestSetLineItemQuantity(t *testing.T) {
	tests := []struct {
		name    string
		qty     string
		wantErr error
	}{
		{name: "zero rejected", qty: "0", wantErr: ErrInvalidQuantity},
		{name: "negative rejected", qty: "-1", wantErr: ErrInvalidQuantity},
		{name: "over stock rejected", qty: "4", wantErr: ErrInsufficientStock},
		{name: "at stock accepted", qty: "3", wantErr: nil},
		{name: "fractional accepted", qty: "1.500", wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			d.AddLineItem(product(1, "10.00", "3"))
			prior := d.Items[0].Quantity

			err := d.SetLineItemQuantity(0, dec(tt.qty))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if !d.Items[0].Quantity.Equal(prior) {
					t.Errorf("rejected edit mutated quantity: %s", d.Items[0].Quantity)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := dec(tt.qty).Mul(dec("10.00"))
			if !d.Items[0].LineTotal.Equal(want) {
				t.Errorf("expected line total %s, got %s", want, d.Items[0].LineTotal)
			}
		})
	}
}

func TestSetLineItemQuantityBadIndex(t *testing.T) {
	d := New()
	if err := d.SetLineItemQuantity(0, dec("1")); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
	if err := d.RemoveLineItem(-1); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

// --- Totals and adjustments ---

func TestNetTotalWithDiscountAndSurcharge(t *testing.T) {
	d := New()
	d.AddLineItem(product(1, "10.00", "5"))
	d.AddLineItem(product(1, "10.00", "5"))

	if err := d.SetDiscount(dec("5.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.NetTotal.Equal(dec("15.00")) {
		t.Fatalf("expected net total 15.00, got %s", d.NetTotal)
	}

	if err := d.SetSurcharge(dec("2.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.NetTotal.Equal(dec("17.00")) {
		t.Fatalf("expected net total 17.00, got %s", d.NetTotal)
	}

	if err := d.SetDiscount(dec("-1")); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative discount, got %v", err)
	}
}

func TestSetAdjustmentsRejectionLeavesBothValues(t *testing.T) {
	d := New()
	d.AddLineItem(product(1, "10.00", "5"))

	if err := d.SetAdjustments(dec("1.00"), dec("0.50")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.NetTotal.Equal(dec("9.50")) {
		t.Fatalf("expected net total 9.50, got %s", d.NetTotal)
	}

	// One bad value rejects the pair; the good one must not slip through.
	if err := d.SetAdjustments(dec("2.00"), dec("-0.50")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if !d.Discount.Equal(dec("1.00")) || !d.Surcharge.Equal(dec("0.50")) {
		t.Errorf("adjustments changed on rejection: discount %s, surcharge %s",
			d.Discount, d.Surcharge)
	}
	if !d.NetTotal.Equal(dec("9.50")) {
		t.Errorf("net total changed on rejection: %s", d.NetTotal)
	}

	if err := d.SetAdjustments(dec("-2.00"), dec("0.25")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if !d.Discount.Equal(dec("1.00")) || !d.Surcharge.Equal(dec("0.50")) {
		t.Errorf("adjustments changed on rejection: discount %s, surcharge %s",
			d.Discount, d.Surcharge)
	}
}

// --- Payments ---

func TestAddPaymentChangeComputation(t *testing.T) {
	d := New()
	d.AddLineItem(product(1, "15.00", "5"))

	// Cash over the amount due: change is the excess of the tendered amount.
	if err := d.AddPayment(cashMethod(), dec("20.00"), dec("20.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Payments[0].Change.Equal(dec("5.00")) {
		t.Errorf("expected change 5.00, got %s", d.Payments[0].Change)
	}
}

func TestAddPaymentNoChangeForCard(t *testing.T) {
	d := New()
	d.AddLineItem(product(1, "15.00", "5"))

	if err := d.AddPayment(cardMethod(), dec("20.00"), dec("20.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Payments[0].Change.Equal(decimal.Zero) {
		t.Errorf("expected zero change, got %s", d.Payments[0].Change)
	}
}

func TestAddPaymentRejectsNonPositiveAmount(t *testing.T) {
	d := New()
	d.AddLineItem(product(1, "15.00", "5"))

	for _, amount := range []string{"0", "-3.00"} {
		if err := d.AddPayment(cashMethod(), dec(amount), decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if len(d.Payments) != 0 {
		t.Errorf("rejected payments were recorded: %d", len(d.Payments))
	}
}

func TestRemovePaymentKeepsFrozenChange(t *testing.T) {
	d := New()
	d.AddLineItem(product(1, "30.00", "5"))

	// First tender covers 10.00 of 30.00 due; second tenders 25.00 against
	// the remaining 20.00, freezing change at 5.00.
	if err := d.AddPayment(cashMethod(), dec("10.00"), dec("10.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.AddPayment(cashMethod(), dec("20.00"), dec("25.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := d.RemovePayment(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Payments[0].Change.Equal(dec("5.00")) {
		t.Errorf("change was recomputed after removal: %s", d.Payments[0].Change)
	}
}

func TestAmountDueClampedForDisplay(t *testing.T) {
	d := New()
	d.AddLineItem(product(1, "10.00", "5"))

	if err := d.AddPayment(cashMethod(), dec("15.00"), dec("15.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.AmountDue().Equal(decimal.Zero) {
		t.Errorf("expected zero due on overpayment, got %s", d.AmountDue())
	}
}

// --- Finalize preconditions ---

func TestValidateForFinalize(t *testing.T) {
	client := Client{ID: 1, RazaoSocial: "Consumidor Final"}

	tests := []struct {
		name    string
		build   func() *Draft
		wantErr error
	}{
		{
			name: "missing client",
			build: func() *Draft {
				d := New()
				d.AddLineItem(product(1, "10.00", "5"))
				return d
			},
			wantErr: ErrMissingClient,
		},
		{
			name: "empty order",
			build: func() *Draft {
				d := New()
				d.SetClient(client)
				return d
			},
			wantErr: ErrEmptyOrder,
		},
		{
			name: "missing payment",
			build: func() *Draft {
				d := New()
				d.SetClient(client)
				d.AddLineItem(product(1, "10.00", "5"))
				return d
			},
			wantErr: ErrMissingPayment,
		},
		{
			name: "payment mismatch over tolerance",
			build: func() *Draft {
				d := New()
				d.SetClient(client)
				d.AddLineItem(product(1, "10.00", "5"))
				_ = d.AddPayment(cardMethod(), dec("9.50"), decimal.Zero)
				return d
			},
			wantErr: ErrPaymentMismatch,
		},
		{
			name: "mismatch within tolerance passes",
			build: func() *Draft {
				d := New()
				d.SetClient(client)
				d.AddLineItem(product(1, "10.00", "5"))
				_ = d.AddPayment(cardMethod(), dec("9.99"), decimal.Zero)
				return d
			},
			wantErr: nil,
		},
		{
			name: "exact payment passes",
			build: func() *Draft {
				d := New()
				d.SetClient(client)
				d.AddLineItem(product(1, "10.00", "5"))
				d.AddLineItem(product(1, "10.00", "5"))
				_ = d.SetDiscount(dec("5.00"))
				_ = d.AddPayment(cashMethod(), dec("15.00"), dec("15.00"))
				return d
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().ValidateForFinalize()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateForFinalizeStockRace(t *testing.T) {
	// Stock can drop below an already-accepted quantity only through the raw
	// snapshot, e.g. a merged add past the snapshot. The validator must name
	// the offending item.
	d := New()
	d.SetClient(Client{ID: 1, RazaoSocial: "Consumidor Final"})
	for i := 0; i < 4; i++ {
		d.AddLineItem(product(1, "10.00", "3"))
	}
	_ = d.AddPayment(cardMethod(), dec("40.00"), decimal.Zero)

	err := d.ValidateForFinalize()
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Details == "" {
		t.Errorf("expected details naming the item, got %v", err)
	}
}

func TestCanFinalize(t *testing.T) {
	d := New()
	if d.CanFinalize() {
		t.Error("empty draft must not be finalizable")
	}

	d.AddLineItem(product(1, "10.00", "5"))
	if d.CanFinalize() {
		t.Error("unpaid draft must not be finalizable")
	}

	_ = d.AddPayment(cashMethod(), dec("10.00"), dec("10.00"))
	if !d.CanFinalize() {
		t.Error("fully paid draft must be finalizable")
	}
}

func TestSnapshotIsDeep(t *testing.T) {
	d := New()
	d.SetClient(Client{ID: 7, RazaoSocial: "Acme"})
	d.AddLineItem(product(1, "10.00", "5"))

	cp := d.Snapshot()
	d.AddLineItem(product(2, "1.00", "5"))
	d.Client.RazaoSocial = "changed"

	if len(cp.Items) != 1 {
		t.Errorf("copy shares item slice: %d items", len(cp.Items))
	}
	if cp.Client.RazaoSocial != "Acme" {
		t.Errorf("copy shares client pointer: %s", cp.Client.RazaoSocial)
	}
}
