package pgcatalog

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
)

// productRow mirrors the nullable products columns.
type productRow struct {
	id             string
	shopID         *string
	name           string
	description    *string
	url            *string
	brand          *string
	category       *string
	subcategory    *string
	price          *float64
	currency       *string
	availability   *string
	productType    *string
	ratingValue    *float64
	ratingCount    *int32
	claims         []byte
	specifications []byte
	images         []byte
}

// targets returns scan destinations in productColumns order.
func (r *productRow) targets() []any {
	return []any{
		&r.id, &r.shopID, &r.name, &r.description, &r.url, &r.brand, &r.category,
		&r.subcategory, &r.price, &r.currency, &r.availability, &r.productType,
		&r.ratingValue, &r.ratingCount, &r.claims, &r.specifications, &r.images,
	}
}

func (r *productRow) toDomain() (product.Product, error) {
	p := product.Product{
		ID:          r.id,
		ShopID:      deref(r.shopID),
		Name:        r.name,
		Description: deref(r.description),
		URL:         deref(r.url),
		Brand:       deref(r.brand),
		Category:    deref(r.category),
		Subcategory: deref(r.subcategory),
		Price:       r.price,
		Currency:    deref(r.currency),
	}
	if r.availability != nil {
		p.Availability = product.ParseAvailability(*r.availability)
	}
	if r.productType != nil {
		p.ProductType = product.ParseType(*r.productType)
	}
	if r.ratingValue != nil {
		p.Rating = &product.Rating{Value: *r.ratingValue}
		if r.ratingCount != nil {
			p.Rating.Count = int(*r.ratingCount)
		}
	}
	if len(r.claims) > 0 {
		if err := json.Unmarshal(r.claims, &p.Claims); err != nil {
			return product.Product{}, fmt.Errorf("product %s: claims: %w", r.id, err)
		}
	}
	if len(r.images) > 0 {
		if err := json.Unmarshal(r.images, &p.Images); err != nil {
			return product.Product{}, fmt.Errorf("product %s: images: %w", r.id, err)
		}
	}
	if len(r.specifications) > 0 {
		specs, err := product.DecodeMap(r.specifications)
		if err != nil {
			return product.Product{}, fmt.Errorf("product %s: specifications: %w", r.id, err)
		}
		p.Specifications = specs
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
