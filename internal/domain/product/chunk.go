package product

import (
	"fmt"
	"strings"
)

// ChunkType labels the part of a product a passage was cut from.
type ChunkType string

// Chunk types produced by BuildChunks.
const (
	ChunkOverview   ChunkType = "overview"
	ChunkSpecs      ChunkType = "specs"
	ChunkClaims     ChunkType = "claims"
	ChunkDetails    ChunkType = "details"
	ChunkAttributes ChunkType = "attributes"
)

// maxChunkRunes caps a single passage; longer descriptions are split into
// several details chunks.
const maxChunkRunes = 800

// Chunk is a labeled passage of a product with its own embedding.
type Chunk struct {
	ID        string           `json:"id" yaml:"id"`
	ProductID string           `json:"product_id" yaml:"product_id"`
	Type      ChunkType        `json:"chunk_type" yaml:"chunk_type"`
	Position  int              `json:"position" yaml:"position"`
	Text      string           `json:"text_content" yaml:"text_content"`
	Embedding []float32        `json:"embedding,omitempty" yaml:"embedding"`
	Metadata  map[string]Value `json:"metadata,omitempty" yaml:"metadata"`
}

// ChunkID builds the stable identifier of the chunk at position within a product.
func ChunkID(productID string, position int) string {
	return fmt.Sprintf("%s#%d", productID, position)
}

// BuildChunks splits a product into labeled passages in a fixed order:
// overview, details (description, possibly several), specs, claims, attributes.
// Embeddings are left empty.
func BuildChunks(p *Product) []Chunk {
	var chunks []Chunk
	add := func(t ChunkType, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		pos := len(chunks)
		chunks = append(chunks, Chunk{
			ID:        ChunkID(p.ID, pos),
			ProductID: p.ID,
			Type:      t,
			Position:  pos,
			Text:      text,
		})
	}

	add(ChunkOverview, overviewText(p))
	for _, part := range splitRunes(p.Description, maxChunkRunes) {
		add(ChunkDetails, part)
	}
	add(ChunkSpecs, specsText(p.Specifications))
	add(ChunkClaims, strings.Join(p.Claims, ". "))
	add(ChunkAttributes, attributesText(p))

	return chunks
}

func overviewText(p *Product) string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Brand != "" {
		b.WriteString(" by ")
		b.WriteString(p.Brand)
	}
	if p.Category != "" {
		b.WriteString(". Category: ")
		b.WriteString(p.Category)
		if p.Subcategory != "" {
			b.WriteString(" / ")
			b.WriteString(p.Subcategory)
		}
	}
	return b.String()
}

func specsText(specs map[string]Value) string {
	if len(specs) == 0 {
		return ""
	}
	keys := sortedKeys(specs)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		if text := specs[k].Text(); text != "" {
			lines = append(lines, k+": "+text)
		}
	}
	return strings.Join(lines, "\n")
}

func attributesText(p *Product) string {
	var parts []string
	if p.Price != nil {
		price := Number(*p.Price).Text()
		if p.Currency != "" {
			price += " " + p.Currency
		}
		parts = append(parts, "Price: "+price)
	}
	if p.Availability != "" && p.Availability != AvailabilityUnknown {
		parts = append(parts, "Availability: "+string(p.Availability))
	}
	if p.ProductType != "" && p.ProductType != TypeUnknown {
		parts = append(parts, "Type: "+string(p.ProductType))
	}
	if p.Rating != nil && p.Rating.Count > 0 {
		parts = append(parts, fmt.Sprintf("Rating: %.1f (%d reviews)", p.Rating.Value, p.Rating.Count))
	}
	return strings.Join(parts, ". ")
}

// splitRunes splits s on whitespace into pieces of at most limit runes.
func splitRunes(s string, limit int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	for _, w := range words {
		wl := len([]rune(w))
		if n > 0 && n+1+wl > limit {
			parts = append(parts, cur.String())
			cur.Reset()
			n = 0
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(w)
		n += wl
	}
	if n > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
