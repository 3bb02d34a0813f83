package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/catalogsearch/internal/db"
	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
	"github.com/kailas-cloud/catalogsearch/internal/domain/search/result"
)

// Product hash fields as written by ingestion.
const (
	fieldID             = "id"
	fieldShopID         = "shop_id"
	fieldName           = "name"
	fieldDescription    = "description"
	fieldURL            = "url"
	fieldBrand          = "brand"
	fieldCategory       = "category"
	fieldSubcategory    = "subcategory"
	fieldPrice          = "price"
	fieldCurrency       = "currency"
	fieldAvailability   = "availability"
	fieldProductType    = "product_type"
	fieldRatingValue    = "rating_value"
	fieldRatingCount    = "rating_count"
	fieldClaims         = "claims"
	fieldSpecifications = "specifications"
	fieldImages         = "images"
)

// Chunk hash fields.
const (
	fieldProductID   = "product_id"
	fieldChunkType   = "chunk_type"
	fieldPosition    = "position"
	fieldTextContent = "text_content"
	fieldDimensions  = "dimensions"
)

// lexicalFields are the product fields scored against the query text.
var lexicalFields = []string{fieldName, fieldDescription, fieldCategory, fieldBrand}

// productFromHash hydrates a Product from an HGETALL result map.
// id is used when the hash lacks an id field.
func productFromHash(id string, m map[string]string) (product.Product, error) {
	p := product.Product{
		ID:          m[fieldID],
		ShopID:      m[fieldShopID],
		Name:        m[fieldName],
		Description: m[fieldDescription],
		URL:         m[fieldURL],
		Brand:       m[fieldBrand],
		Category:    m[fieldCategory],
		Subcategory: m[fieldSubcategory],
		Currency:    m[fieldCurrency],
	}
	if p.ID == "" {
		p.ID = id
	}

	if s := m[fieldPrice]; s != "" {
		price, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(price) {
			return product.Product{}, fmt.Errorf("product %s: invalid price %q", p.ID, s)
		}
		p.Price = &price
	}
	if s := m[fieldAvailability]; s != "" {
		p.Availability = product.ParseAvailability(s)
	}
	if s := m[fieldProductType]; s != "" {
		p.ProductType = product.ParseType(s)
	}
	if s := m[fieldRatingValue]; s != "" {
		value, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return product.Product{}, fmt.Errorf("product %s: invalid rating %q", p.ID, s)
		}
		count, _ := strconv.Atoi(m[fieldRatingCount]) // missing count reads as 0
		p.Rating = &product.Rating{Value: value, Count: count}
	}

	if err := unmarshalList(m[fieldClaims], &p.Claims); err != nil {
		return product.Product{}, fmt.Errorf("product %s: claims: %w", p.ID, err)
	}
	if err := unmarshalList(m[fieldImages], &p.Images); err != nil {
		return product.Product{}, fmt.Errorf("product %s: images: %w", p.ID, err)
	}
	if s := m[fieldSpecifications]; s != "" {
		specs, err := product.DecodeMap([]byte(s))
		if err != nil {
			return product.Product{}, fmt.Errorf("product %s: specifications: %w", p.ID, err)
		}
		p.Specifications = specs
	}

	return p, nil
}

func unmarshalList(s string, out *[]string) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

// chunkHitFromEntry converts a KNN entry. Redis reports cosine distance,
// so similarity is 1 - distance and lies in [-1, 1].
func chunkHitFromEntry(chunkID string, e db.SearchEntry) (result.ChunkHit, bool) {
	productID := e.Fields[fieldProductID]
	if productID == "" {
		return result.ChunkHit{}, false
	}
	pos, _ := strconv.Atoi(e.Fields[fieldPosition]) // missing position sorts first
	return result.ChunkHit{
		ProductID:  productID,
		ChunkID:    chunkID,
		ChunkType:  product.ChunkType(e.Fields[fieldChunkType]),
		Content:    e.Fields[fieldTextContent],
		Position:   pos,
		Similarity: 1 - e.Score,
	}, true
}
