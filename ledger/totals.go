/*
totals.go - Pure derivation of a day's reconciliation numbers

PURPOSE:
  Totals() folds the ledger's source collections into the numbers the closer
  compares against the register. Nothing here is persisted: recomputing from
  source on every call is what guarantees zero drift between stored totals
  and the underlying transactions.

PROPERTIES:
  - Idempotent: calling twice yields the same result.
  - Order-independent: permuting sales or expenses changes nothing.
  - Catalog-priced values (courtesies, employee consumption) take a price
    lookup; unknown products price at zero rather than failing, because a
    deleted product must not make an old day unreadable.
*/
package ledger

import "github.com/shopspring/decimal"

// PriceLookup resolves a product name to its catalog price.
// The second return is false when the catalog does not know the product.
type PriceLookup func(productName string) (decimal.Decimal, bool)

// Totals is the derived read model for one day.
type Totals struct {
	SalesCash     decimal.Decimal `json:"salesCash"`
	SalesTransfer decimal.Decimal `json:"salesTransfer"`

	PayrollTotal        decimal.Decimal `json:"payrollTotal"`
	DiscountsTotal      decimal.Decimal `json:"discountsTotal"`
	CollaborationsValue decimal.Decimal `json:"collaborationsValue"`
	CourtesiesValue     decimal.Decimal `json:"courtesiesValue"`
	ConsumptionValue    decimal.Decimal `json:"employeeConsumptionValue"`

	// ExpensesTotal is the sum of the day's purchases. Expenses live in
	// their own store, so the caller folds them in via ApplyExpenses.
	ExpensesTotal decimal.Decimal `json:"expensesTotal"`

	// SuppliesUsed is the per-family depletion: initial + new - remaining.
	SuppliesUsed map[string]int `json:"suppliesUsed"`
}

// Totals recomputes the day's derived numbers from the source collections.
// prices may be nil when no catalog is available; catalog-priced buckets then
// come out zero.
func (l *DailyLedger) Totals(prices PriceLookup) Totals {
	t := Totals{
		SalesCash:           decimal.Zero,
		SalesTransfer:       decimal.Zero,
		PayrollTotal:        decimal.Zero,
		DiscountsTotal:      decimal.Zero,
		CollaborationsValue: decimal.Zero,
		CourtesiesValue:     decimal.Zero,
		ConsumptionValue:    decimal.Zero,
		ExpensesTotal:       decimal.Zero,
		SuppliesUsed:        map[string]int{},
	}

	for _, s := range l.Sales {
		switch s.PaymentMethod {
		case PaymentCash:
			t.SalesCash = t.SalesCash.Add(s.Total)
		case PaymentTransfer:
			t.SalesTransfer = t.SalesTransfer.Add(s.Total)
		}
	}

	for _, p := range l.Payroll {
		t.PayrollTotal = t.PayrollTotal.Add(p.AmountPaid)
	}
	for _, d := range l.Discounts {
		t.DiscountsTotal = t.DiscountsTotal.Add(d.Granted())
	}
	for _, c := range l.Collaborations {
		t.CollaborationsValue = t.CollaborationsValue.Add(c.Value)
	}

	for _, c := range l.Courtesies {
		t.CourtesiesValue = t.CourtesiesValue.Add(priceTimes(prices, c.ProductName, c.Quantity))
	}
	for _, c := range l.EmployeeConsumption {
		t.ConsumptionValue = t.ConsumptionValue.Add(priceTimes(prices, c.ProductName, c.Quantity))
	}

	for family, count := range l.Stock.Families() {
		t.SuppliesUsed[family] = count.Used()
	}

	return t
}

// ApplyExpenses folds the day's purchase totals into the read model. Same
// recompute-from-source rule as everything else here: the stored expense
// totals are themselves derived from items, never caller input.
func (t *Totals) ApplyExpenses(expenses []*Expense) {
	for _, e := range expenses {
		t.ExpensesTotal = t.ExpensesTotal.Add(e.Total)
	}
}

func priceTimes(prices PriceLookup, product string, qty int) decimal.Decimal {
	if prices == nil {
		return decimal.Zero
	}
	price, ok := prices(product)
	if !ok {
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(int64(qty)))
}
