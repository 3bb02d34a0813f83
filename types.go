package catalogsearch

import "github.com/kailas-cloud/catalogsearch/internal/domain/product"

// SearchMode controls the retrieval strategy.
type SearchMode string

// Search mode constants.
const (
	ModeVector  SearchMode = "vector"
	ModeKeyword SearchMode = "keyword"
	ModeHybrid  SearchMode = "hybrid"
)

// Availability is the stock state of a product.
type Availability string

// Availability constants.
const (
	InStock             Availability = "in_stock"
	OutOfStock          Availability = "out_of_stock"
	PreOrder            Availability = "preorder"
	Discontinued        Availability = "discontinued"
	AvailabilityUnknown Availability = "unknown"
)

// ProductType is the kind of product being sold.
type ProductType string

// Product type constants.
const (
	Physical     ProductType = "physical"
	Digital      ProductType = "digital"
	Service      ProductType = "service"
	Subscription ProductType = "subscription"
)

// PriceRange bounds the product price. Both bounds are inclusive; nil means unbounded.
type PriceRange struct {
	Min *float64
	Max *float64
}

// Filters constrains which products may appear in results.
// Every non-empty field must hold; list fields match any of their values.
type Filters struct {
	ShopID       string
	PriceRange   *PriceRange
	Categories   []string
	Brands       []string
	Availability []Availability
	ProductTypes []ProductType
}

// SearchOptions configures a search query. Zero values and nil pointers
// select the client defaults (see WithSearchDefaults), then the built-in
// ones: vector mode, limit 10, threshold 0.5, weights 0.7/0.3, no chunks,
// no rerank. Bool(false) turns off a switch the defaults enable.
type SearchOptions struct {
	Mode          SearchMode
	Limit         int
	Offset        int
	Threshold     *float64
	Filters       *Filters
	IncludeChunks *bool
	Rerank        *bool
	VectorWeight  *float64
	KeywordWeight *float64
}

// Rating is an aggregate customer rating.
type Rating struct {
	Value float64
	Count int
}

// Chunk is a product passage that matched the query.
type Chunk struct {
	ID         string
	Type       string
	Content    string
	Similarity float64
	Position   int
}

// SearchResult is a single ranked product.
type SearchResult struct {
	ProductID      string
	Name           string
	Description    string
	URL            string
	Brand          string
	Category       string
	Subcategory    string
	Price          *float64
	Currency       string
	Availability   Availability
	ProductType    ProductType
	Similarity     float64
	Claims         []string
	Specifications map[string]Value
	Images         []string
	Rating         *Rating
	Chunks         []Chunk
}

// Value is a free-form specification value. It holds exactly one of a
// string, number, bool, array or object, or is null; Kind reports which,
// and Str, Num, Boolean, Items and Fields read it. It marshals to plain JSON.
type Value = product.Value

// ValueKind tags the variant held by a Value.
type ValueKind = product.Kind

// Value kinds.
const (
	ValueNull   = product.KindNull
	ValueString = product.KindString
	ValueNumber = product.KindNumber
	ValueBool   = product.KindBool
	ValueArray  = product.KindArray
	ValueObject = product.KindObject
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

// Float returns a pointer to f, for optional numeric options.
func Float(f float64) *float64 { return &f }

// Bool returns a pointer to b, for optional switches.
func Bool(b bool) *bool { return &b }
