package result

import (
	"sort"

	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
)

// MaxChunksPerResult caps the chunks attached to a product result.
const MaxChunksPerResult = 3

// ChunkHit is one chunk returned by the vector store.
type ChunkHit struct {
	ProductID  string
	ChunkID    string
	ChunkType  product.ChunkType
	Content    string
	Position   int
	Similarity float64
}

// LexicalHit is one product scored by the lexical store.
type LexicalHit struct {
	ProductID string
	Name      string
	Score     float64
}

// ChunkResult is the public view of a matching chunk.
type ChunkResult struct {
	ChunkID    string            `json:"chunk_id"`
	ChunkType  product.ChunkType `json:"chunk_type"`
	Content    string            `json:"content"`
	Similarity float64           `json:"similarity"`
	Position   int               `json:"position"`
}

// FromHit converts a store hit into its public view.
func FromHit(h ChunkHit) ChunkResult {
	return ChunkResult{
		ChunkID:    h.ChunkID,
		ChunkType:  h.ChunkType,
		Content:    h.Content,
		Similarity: h.Similarity,
		Position:   h.Position,
	}
}

// Metadata carries the product fields not promoted to the top level.
type Metadata struct {
	Subcategory    string                   `json:"subcategory,omitempty"`
	ProductType    product.Type             `json:"product_type,omitempty"`
	Availability   product.Availability     `json:"availability,omitempty"`
	Claims         []string                 `json:"claims,omitempty"`
	Specifications map[string]product.Value `json:"specifications,omitempty"`
	Images         []string                 `json:"images,omitempty"`
	Rating         *product.Rating          `json:"rating,omitempty"`
}

// SearchResult is one ranked product.
type SearchResult struct {
	ProductID   string        `json:"product_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
	Brand       string        `json:"brand,omitempty"`
	Category    string        `json:"category,omitempty"`
	Price       *float64      `json:"price,omitempty"`
	Currency    string        `json:"currency,omitempty"`
	Similarity  float64       `json:"similarity"`
	Chunks      []ChunkResult `json:"chunks,omitempty"`
	Metadata    Metadata      `json:"metadata"`
}

// New builds a result from stored product metadata and its final score.
// At most MaxChunksPerResult chunks are kept.
func New(p *product.Product, similarity float64, chunks []ChunkResult) SearchResult {
	if len(chunks) > MaxChunksPerResult {
		chunks = chunks[:MaxChunksPerResult]
	}
	return SearchResult{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		URL:         p.URL,
		Brand:       p.Brand,
		Category:    p.Category,
		Price:       p.Price,
		Currency:    p.Currency,
		Similarity:  similarity,
		Chunks:      chunks,
		Metadata: Metadata{
			Subcategory:    p.Subcategory,
			ProductType:    p.ProductType,
			Availability:   p.Availability,
			Claims:         p.Claims,
			Specifications: p.Specifications,
			Images:         p.Images,
			Rating:         p.Rating,
		},
	}
}

// RankLexical orders hits by score descending (ties by product id), skips
// offset hits and keeps at most topN.
func RankLexical(hits []LexicalHit, topN, offset int) []LexicalHit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ProductID < hits[j].ProductID
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(hits) {
		return []LexicalHit{}
	}
	hits = hits[offset:]
	if topN >= 0 && len(hits) > topN {
		hits = hits[:topN]
	}
	return hits
}
