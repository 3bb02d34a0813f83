package product

import (
	"fmt"
	"strings"
)

// Availability is the stock state of a product.
type Availability string

// Availability values.
const (
	InStock      Availability = "in_stock"
	OutOfStock   Availability = "out_of_stock"
	PreOrder     Availability = "preorder"
	Discontinued Availability = "discontinued"
	// AvailabilityUnknown is used when the source page did not state availability.
	AvailabilityUnknown Availability = "unknown"
)

// IsValid checks if the availability is one of the supported values.
func (a Availability) IsValid() bool {
	switch a {
	case InStock, OutOfStock, PreOrder, Discontinued, AvailabilityUnknown:
		return true
	}
	return false
}

// ParseAvailability normalizes a stored value. Unknown spellings map to AvailabilityUnknown.
func ParseAvailability(s string) Availability {
	a := Availability(strings.ToLower(strings.TrimSpace(s)))
	if !a.IsValid() {
		return AvailabilityUnknown
	}
	return a
}

// Type is the kind of product being sold.
type Type string

// Product type values.
const (
	Physical     Type = "physical"
	Digital      Type = "digital"
	Service      Type = "service"
	Subscription Type = "subscription"
	TypeUnknown  Type = "unknown"
)

// IsValid checks if the product type is one of the supported values.
func (t Type) IsValid() bool {
	switch t {
	case Physical, Digital, Service, Subscription, TypeUnknown:
		return true
	}
	return false
}

// ParseType normalizes a stored value. Unknown spellings map to TypeUnknown.
func ParseType(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return TypeUnknown
	}
	return t
}

// Rating is an aggregate customer rating.
type Rating struct {
	Value float64 `json:"value" yaml:"value"`
	Count int     `json:"count" yaml:"count"`
}

// Product is a catalog entry as written by ingestion. Retrieval only reads it.
type Product struct {
	ID             string           `json:"id" yaml:"id"`
	ShopID         string           `json:"shop_id,omitempty" yaml:"shop_id"`
	Name           string           `json:"name" yaml:"name"`
	Description    string           `json:"description,omitempty" yaml:"description"`
	URL            string           `json:"url,omitempty" yaml:"url"`
	Brand          string           `json:"brand,omitempty" yaml:"brand"`
	Category       string           `json:"category,omitempty" yaml:"category"`
	Subcategory    string           `json:"subcategory,omitempty" yaml:"subcategory"`
	Price          *float64         `json:"price,omitempty" yaml:"price"`
	Currency       string           `json:"currency,omitempty" yaml:"currency"`
	Availability   Availability     `json:"availability,omitempty" yaml:"availability"`
	ProductType    Type             `json:"product_type,omitempty" yaml:"product_type"`
	Rating         *Rating          `json:"rating,omitempty" yaml:"rating"`
	Claims         []string         `json:"claims,omitempty" yaml:"claims"`
	Specifications map[string]Value `json:"specifications,omitempty" yaml:"specifications"`
	Images         []string         `json:"images,omitempty" yaml:"images"`
}

// Validate checks the fields retrieval depends on.
func (p *Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("product ID is required")
	}
	if p.Name == "" {
		return fmt.Errorf("product %q: name is required", p.ID)
	}
	if p.Price != nil && *p.Price < 0 {
		return fmt.Errorf("product %q: price must not be negative", p.ID)
	}
	if p.Availability != "" && !p.Availability.IsValid() {
		return fmt.Errorf("product %q: invalid availability %q", p.ID, p.Availability)
	}
	if p.ProductType != "" && !p.ProductType.IsValid() {
		return fmt.Errorf("product %q: invalid product type %q", p.ID, p.ProductType)
	}
	return nil
}

// HasPrice reports whether the product carries a price.
func (p *Product) HasPrice() bool { return p.Price != nil }
