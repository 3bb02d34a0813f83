package filter

import "github.com/kailas-cloud/catalogsearch/internal/domain/product"

// PriceRange bounds the product price. Both bounds are inclusive and optional.
type PriceRange struct {
	Min *float64 `json:"min,omitempty" yaml:"min"`
	Max *float64 `json:"max,omitempty" yaml:"max"`
}

// Filters is the structured metadata constraint of a search request.
// A nil Filters or an empty field constrains nothing.
type Filters struct {
	ShopID       *string                `json:"shop_id,omitempty" yaml:"shop_id"`
	PriceRange   *PriceRange            `json:"price_range,omitempty" yaml:"price_range"`
	Categories   []string               `json:"categories,omitempty" yaml:"categories"`
	Brands       []string               `json:"brands,omitempty" yaml:"brands"`
	Availability []product.Availability `json:"availability,omitempty" yaml:"availability"`
	ProductTypes []product.Type         `json:"product_types,omitempty" yaml:"product_types"`
}

// Predicate is the compiled form of Filters. Every present constraint is
// ANDed; list constraints are membership tests.
type Predicate struct {
	shopID       string
	minPrice     *float64
	maxPrice     *float64
	categories   []string
	brands       []string
	availability []product.Availability
	productTypes []product.Type
}

// Compile turns f into a Predicate. Compile never fails: unknown or empty
// values degrade to no constraint.
func (f *Filters) Compile() Predicate {
	if f == nil {
		return Predicate{}
	}

	var p Predicate
	if f.ShopID != nil {
		p.shopID = *f.ShopID
	}
	if f.PriceRange != nil {
		p.minPrice = copyFloat(f.PriceRange.Min)
		p.maxPrice = copyFloat(f.PriceRange.Max)
	}
	p.categories = dedupe(f.Categories)
	p.brands = dedupe(f.Brands)
	p.availability = dedupe(f.Availability)
	p.productTypes = dedupe(f.ProductTypes)
	return p
}

// IsEmpty reports whether the predicate matches every product.
func (p Predicate) IsEmpty() bool {
	return p.shopID == "" && p.minPrice == nil && p.maxPrice == nil &&
		len(p.categories) == 0 && len(p.brands) == 0 &&
		len(p.availability) == 0 && len(p.productTypes) == 0
}

// ShopID returns the required shop, or "" when unconstrained.
func (p Predicate) ShopID() string { return p.shopID }

// MinPrice returns the inclusive lower price bound.
func (p Predicate) MinPrice() *float64 { return p.minPrice }

// MaxPrice returns the inclusive upper price bound.
func (p Predicate) MaxPrice() *float64 { return p.maxPrice }

// HasPriceRange reports whether either price bound is set.
func (p Predicate) HasPriceRange() bool { return p.minPrice != nil || p.maxPrice != nil }

// Categories returns the allowed categories.
func (p Predicate) Categories() []string { return p.categories }

// Brands returns the allowed brands.
func (p Predicate) Brands() []string { return p.brands }

// Availability returns the allowed availability states.
func (p Predicate) Availability() []product.Availability { return p.availability }

// ProductTypes returns the allowed product types.
func (p Predicate) ProductTypes() []product.Type { return p.productTypes }

// Match evaluates the predicate against a product. Membership is exact and
// case-sensitive. A product without a price fails any price bound.
func (p Predicate) Match(prod *product.Product) bool {
	if prod == nil {
		return false
	}
	if p.shopID != "" && prod.ShopID != p.shopID {
		return false
	}
	if p.HasPriceRange() {
		if prod.Price == nil {
			return false
		}
		if p.minPrice != nil && *prod.Price < *p.minPrice {
			return false
		}
		if p.maxPrice != nil && *prod.Price > *p.maxPrice {
			return false
		}
	}
	return member(p.categories, prod.Category) &&
		member(p.brands, prod.Brand) &&
		member(p.availability, prod.Availability) &&
		member(p.productTypes, prod.ProductType)
}

// member reports whether v is in set; an empty set admits everything.
func member[T comparable](set []T, v T) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func dedupe[T comparable](in []T) []T {
	var zero T
	out := make([]T, 0, len(in))
	seen := make(map[T]struct{}, len(in))
	for _, v := range in {
		if v == zero {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
