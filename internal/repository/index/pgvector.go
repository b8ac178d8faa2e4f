package index

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/kailas-cloud/prodscout/internal/domain"
	"github.com/kailas-cloud/prodscout/internal/domain/hit"
)

// DefaultEmbeddingTable holds one row per indexed product.
const DefaultEmbeddingTable = "product_embeddings"

// ProductEmbedding is a row of the dense product index on Postgres.
type ProductEmbedding struct {
	URN       string          `gorm:"column:urn;primaryKey"`
	Name      string          `gorm:"column:name"`
	Brand     string          `gorm:"column:brand"`
	Category  string          `gorm:"column:category;index"`
	Price     *float64        `gorm:"column:price"`
	Currency  string          `gorm:"column:currency"`
	URL       string          `gorm:"column:url"`
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(1536)"`
}

// scoredEmbedding is a ProductEmbedding with its cosine similarity to the query.
type scoredEmbedding struct {
	ProductEmbedding
	Similarity float64 `gorm:"column:similarity"`
}

// PGVector is the dense backend on Postgres with the pgvector extension.
type PGVector struct {
	db       *gorm.DB
	embedder domain.Embedder
	table    string
}

// NewPGVector creates the pgvector dense backend.
func NewPGVector(db *gorm.DB, embedder domain.Embedder, table string) *PGVector {
	if table == "" {
		table = DefaultEmbeddingTable
	}
	return &PGVector{db: db, embedder: embedder, table: table}
}

// Search implements the dense index backend. Cosine distance is converted to
// similarity so higher is better, as with the RediSearch backend.
func (p *PGVector) Search(ctx context.Context, query string, topK int, f hit.Filters) ([]hit.Hit, error) {
	emb, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var rows []scoredEmbedding
	if err := p.query(p.db.WithContext(ctx), emb.Embedding, topK, f).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("pgvector search %s: %w", p.table, backendErr(err))
	}

	return rowsToHits(rows), nil
}

func (p *PGVector) query(tx *gorm.DB, vec []float32, topK int, f hit.Filters) *gorm.DB {
	qv := pgvector.NewVector(vec)
	tx = tx.Table(p.table).
		Select("urn, name, brand, category, price, currency, url, 1 - (embedding <=> ?) AS similarity", qv)
	if f.Category != "" {
		tx = tx.Where("category = ?", f.Category)
	}
	if f.PriceMax != nil {
		tx = tx.Where("price <= ?", *f.PriceMax)
	}
	return tx.
		Order(gorm.Expr("embedding <=> ?", qv)).
		Limit(topK)
}

func rowsToHits(rows []scoredEmbedding) []hit.Hit {
	hits := make([]hit.Hit, 0, len(rows))
	for _, r := range rows {
		meta := make(map[string]any, len(returnFields))
		setIf(meta, hit.MetaName, r.Name)
		setIf(meta, hit.MetaBrand, r.Brand)
		setIf(meta, hit.MetaCategory, r.Category)
		setIf(meta, hit.MetaCurrency, r.Currency)
		setIf(meta, hit.MetaURL, r.URL)
		if r.Price != nil {
			meta[hit.MetaPrice] = *r.Price
		}
		hits = append(hits, hit.NewDense(r.URN, r.Similarity, meta))
	}
	return hits
}

func setIf(meta map[string]any, key, value string) {
	if value != "" {
		meta[key] = value
	}
}
