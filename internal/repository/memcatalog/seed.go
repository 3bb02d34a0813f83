package memcatalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/catalogsearch/internal/domain"
	"github.com/kailas-cloud/catalogsearch/internal/domain/product"
)

// Seed is the YAML document a catalog is loaded from.
type Seed struct {
	Products []SeedProduct `yaml:"products"`
}

// SeedProduct is a product with optional precomputed chunks. Products
// without chunks are split with product.BuildChunks; chunks without
// embeddings are embedded on load.
type SeedProduct struct {
	product.Product `yaml:",inline"`
	Chunks          []product.Chunk `yaml:"chunks"`
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	return s, nil
}

// LoadFile reads a YAML seed file into a new catalog.
func LoadFile(ctx context.Context, path string, embed domain.Embedder) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}
	c := New()
	if err := c.Load(ctx, seed, embed); err != nil {
		return nil, err
	}
	return c, nil
}

// Load adds every seed product, embedding missing chunk vectors in one
// batch. embed may be nil when every chunk already carries an embedding.
func (c *Catalog) Load(ctx context.Context, seed Seed, embed domain.Embedder) error {
	type pending struct{ product, chunk int }

	chunks := make([][]product.Chunk, len(seed.Products))
	var (
		todo  []pending
		texts []string
	)
	for i := range seed.Products {
		sp := &seed.Products[i]
		chunks[i] = sp.Chunks
		if len(chunks[i]) == 0 {
			chunks[i] = product.BuildChunks(&sp.Product)
		}
		for j := range chunks[i] {
			if len(chunks[i][j].Embedding) == 0 {
				todo = append(todo, pending{i, j})
				texts = append(texts, chunks[i][j].Text)
			}
		}
	}

	if len(texts) > 0 {
		if embed == nil {
			return fmt.Errorf("seed has %d chunks without embeddings and no embedder", len(texts))
		}
		res, err := domain.EmbedAll(ctx, embed, texts)
		if err != nil {
			return fmt.Errorf("embed seed chunks: %w", err)
		}
		if len(res.Embeddings) != len(texts) {
			return fmt.Errorf("embed seed chunks: got %d vectors for %d texts", len(res.Embeddings), len(texts))
		}
		for k, at := range todo {
			chunks[at.product][at.chunk].Embedding = res.Embeddings[k]
		}
	}

	for i := range seed.Products {
		if err := c.Add(seed.Products[i].Product, chunks[i]); err != nil {
			return err
		}
	}
	return nil
}
