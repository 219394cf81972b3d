package store

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const seqBandwidth = 100

// seqGenerator hands out strictly increasing ids. Leased ranges are lost on
// restart, so ids may skip but never repeat or go backwards.
type seqGenerator struct {
	seq *badger.Sequence
}

func newSeqGenerator(db *badger.DB, key string) (*seqGenerator, error) {
	seq, err := db.GetSequence([]byte(key), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("sequence %s: %w", key, err)
	}
	return &seqGenerator{seq: seq}, nil
}

// next returns ids starting at 1.
func (g *seqGenerator) next() (int64, error) {
	n, err := g.seq.Next()
	if err != nil {
		return 0, err
	}
	return int64(n) + 1, nil
}

func (g *seqGenerator) release() error {
	return g.seq.Release()
}
