package catalog

import "context"

// Store extends the read-only Accessor with product maintenance.
// Staff records are managed by the (out of scope) user system; the engine
// only ever reads them.
type Store interface {
	Accessor

	// CreateProduct assigns an ID if empty and inserts the product.
	CreateProduct(ctx context.Context, p *Product) error

	// UpdateProduct overwrites the product wholesale.
	UpdateProduct(ctx context.Context, p *Product) error

	// DeleteProduct removes the product. Historical ledgers keep their
	// recorded prices; deletion only stops future sales.
	DeleteProduct(ctx context.Context, id string) error
}

// =============================================================================
// STATIC ACCESSOR - fixed catalog for tests and dev
// =============================================================================

// Static is an Accessor over fixed slices.
type Static struct {
	products []Product
	staff    []Staff
}

func NewStatic(products []Product, staff []Staff) *Static {
	return &Static{products: products, staff: staff}
}

func (s *Static) Products(context.Context) ([]Product, error) {
	return append([]Product(nil), s.products...), nil
}

func (s *Static) Staff(context.Context) ([]Staff, error) {
	return append([]Staff(nil), s.staff...), nil
}
