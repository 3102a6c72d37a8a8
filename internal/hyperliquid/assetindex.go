// assetindex.go implements a lazy asset-index map: Hyperliquid identifies
// assets by a dense integer in signed payloads rather than by coin string,
// and the connector must resolve coin -> index the first time a write path
// needs it, then cache the mapping. The map and its initialized flag are a
// plain bool guarded by a sync.RWMutex: every lookup takes the read lock
// (reads are not lock-free), and a refresh holds the write lock for the
// whole metadata fetch.
package hyperliquid

import (
	"context"
	"sync"

	"github.com/0xtitan6/quantis/internal/errs"
)

// AssetIndexMap caches coin -> Hyperliquid asset index, refreshing only on
// a lookup miss.
type AssetIndexMap struct {
	mu          sync.RWMutex
	initialized bool
	byCoin      map[string]int
	info        *InfoClient
}

func newAssetIndexMap(info *InfoClient) *AssetIndexMap {
	return &AssetIndexMap{info: info}
}

// Resolve returns coin's asset index, fetching metadata on first use or on
// a cache miss (the venue adds new assets over time).
func (m *AssetIndexMap) Resolve(ctx context.Context, coin string) (int, error) {
	if idx, ok := m.lookupLocked(coin); ok {
		return idx, nil
	}

	if err := m.refresh(ctx); err != nil {
		return 0, err
	}

	if idx, ok := m.lookupLocked(coin); ok {
		return idx, nil
	}
	return 0, errs.ErrAssetNotFound
}

func (m *AssetIndexMap) lookupLocked(coin string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return 0, false
	}
	idx, ok := m.byCoin[coin]
	return idx, ok
}

func (m *AssetIndexMap) refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, err := m.info.Meta(ctx)
	if err != nil {
		return errs.Wrap(errs.CategoryAPI, "assetindex.refresh", err)
	}

	byCoin := make(map[string]int, len(meta.Universe))
	for i, asset := range meta.Universe {
		byCoin[asset.Name] = i
	}
	m.byCoin = byCoin
	m.initialized = true
	return nil
}
