package index

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/kailas-cloud/prodscout/internal/domain"
)

// Pair is the dense and sparse backend the dispatcher fans out to.
// Both sides are wrapped with Instrument.
type Pair struct {
	Dense  *Instrumented
	Sparse *Instrumented
	close  func() error
}

// Close releases resources owned by the pair (the Bleve index for pgvector).
func (p Pair) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// redisSearcher is the RediSearch surface both redis backends need.
type redisSearcher interface {
	knnStore
	textStore
}

// NewRedisPair builds the RediSearch KNN + BM25 pair over one store.
func NewRedisPair(s redisSearcher, embedder domain.Embedder, dense, sparse RedisOptions) Pair {
	return Pair{
		Dense:  Instrument("dense", NewRedisDense(s, embedder, dense)),
		Sparse: Instrument("sparse", NewRedisSparse(s, sparse)),
	}
}

// NewPGVectorPair builds the pgvector + Bleve pair. The Bleve index at blevePath
// is opened (or created) here and closed by Pair.Close.
func NewPGVectorPair(db *gorm.DB, embedder domain.Embedder, table, blevePath string) (Pair, error) {
	b, err := OpenBleve(blevePath)
	if err != nil {
		return Pair{}, fmt.Errorf("sparse index: %w", err)
	}
	return Pair{
		Dense:  Instrument("dense", NewPGVector(db, embedder, table)),
		Sparse: Instrument("sparse", b),
		close:  b.Close,
	}, nil
}
