// Package cache provides the tile cache: a byte-budgeted LRU store of decoded
// tile images that deduplicates concurrent loads.
//
// # Usage
//
//	tiles := cache.New(cache.WithMaxBytes(128 << 20))
//	key := cache.NewKey(recordingID, tileWindow, params)
//	img, err := tiles.GetOrLoad(ctx, key, func(ctx context.Context) (image.Image, error) {
//	    return client.Fetch(ctx, req)
//	})
//
// # Semantics
//
//   - A fresh cached entry is returned immediately and becomes most recently used.
//   - Concurrent GetOrLoad calls for the same key share one call to the loader.
//   - Failed loads are not cached; every waiter sees the error and the next
//     call starts a new load.
//   - When the total size of cached images exceeds the budget, least recently
//     used entries are evicted. The newest entry is always kept.
//
// A waiter whose context is cancelled stops waiting, but the load itself keeps
// running and still populates the cache, so a tile that scrolled out of view
// is ready if the user scrolls back.
//
// # Thread Safety
//
// TileCache is safe for concurrent use and must not be copied after creation.
package cache
