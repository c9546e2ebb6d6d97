package identifier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CancellationError reports that a build was cancelled while a batch
// request was pending. It is raised immediately and never retried.
type CancellationError struct {
	Msg string
}

func (e *CancellationError) Error() string {
	return "build cancelled: " + e.Msg
}

// Cache is the build-scoped uuid to SCTID cache shared by every file
// transformation of one build. Reads and writes are safe across the
// parallel transformation passes; a cached uuid is never re-requested.
type Cache struct {
	client Client
	cfg    Config
	logger *zap.Logger

	mu  sync.RWMutex
	ids map[string]int64

	// group coalesces identical in-flight uuid batches so concurrent
	// transformations resolving the same foreign keys share one job.
	group singleflight.Group
}

// NewCache creates an empty cache backed by the given service client.
func NewCache(client Client, cfg Config, logger *zap.Logger) *Cache {
	return &Cache{
		client: client,
		cfg:    cfg,
		logger: logger,
		ids:    make(map[string]int64),
	}
}

// Get returns the cached SCTID for a uuid, if present.
func (c *Cache) Get(uuid string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[uuid]
	return id, ok
}

// GetSCTID returns the permanent id for one uuid, calling the service on a
// cache miss. The result is cached; repeat calls never hit the network.
func (c *Cache) GetSCTID(ctx context.Context, uuid string, namespace int, partitionID, comment string) (int64, error) {
	if id, ok := c.Get(uuid); ok {
		return id, nil
	}
	id, err := c.client.CreateSCTID(ctx, CreateRequest{
		UUID:        uuid,
		Namespace:   namespace,
		PartitionID: partitionID,
		Comment:     comment,
	})
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.ids[uuid] = id
	c.mu.Unlock()
	return id, nil
}

// GetSCTIDs resolves a batch of uuids in one bulk service call, retrying
// transient failures up to the configured maximum with a fixed delay. The
// cancelled check is polled before every retry so a cancelled build aborts
// the batch instead of sleeping through the remaining attempts. Every
// fetched id is cached. An empty input returns an empty map with no call.
func (c *Cache) GetSCTIDs(ctx context.Context, cancelled func() bool, uuids []string, namespace int, partitionID, comment string) (map[string]int64, error) {
	if len(uuids) == 0 {
		return map[string]int64{}, nil
	}

	result := make(map[string]int64, len(uuids))
	var missing []string
	seen := make(map[string]struct{}, len(uuids))
	c.mu.RLock()
	for _, uuid := range uuids {
		if _, dup := seen[uuid]; dup {
			continue
		}
		seen[uuid] = struct{}{}
		if id, ok := c.ids[uuid]; ok {
			result[uuid] = id
		} else {
			missing = append(missing, uuid)
		}
	}
	c.mu.RUnlock()
	if len(missing) == 0 {
		return result, nil
	}

	sort.Strings(missing)
	batchKey := partitionID + "|" + strings.Join(missing, ",")
	fetched, err, _ := c.group.Do(batchKey, func() (any, error) {
		return c.fetchWithRetry(ctx, cancelled, missing, namespace, partitionID, comment)
	})
	if err != nil {
		return nil, err
	}

	for uuid, id := range fetched.(map[string]int64) {
		result[uuid] = id
	}
	return result, nil
}

func (c *Cache) fetchWithRetry(ctx context.Context, cancelled func() bool, uuids []string, namespace int, partitionID, comment string) (map[string]int64, error) {
	delay := time.Duration(c.cfg.RetryDelaySeconds) * time.Second
	attempts := c.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if cancelled != nil && cancelled() {
				return nil, &CancellationError{Msg: fmt.Sprintf("abandoning sctid batch of %d after %d attempts", len(uuids), attempt-1)}
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		ids, err := c.client.CreateSCTIDs(ctx, BulkCreateRequest{
			UUIDs:       uuids,
			Namespace:   namespace,
			PartitionID: partitionID,
			Comment:     comment,
		})
		if err == nil {
			c.mu.Lock()
			for uuid, id := range ids {
				c.ids[uuid] = id
			}
			c.mu.Unlock()
			return ids, nil
		}
		lastErr = err
		c.logger.Warn("Bulk SCTID request failed",
			zap.Int("attempt", attempt),
			zap.Int("uuids", len(uuids)),
			zap.Error(err))
	}
	return nil, fmt.Errorf("bulk sctid request failed after %d attempts: %w", attempts, lastErr)
}
