package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"loom-engine/internal/domain/item"
	"loom-engine/internal/remote"
	"loom-engine/internal/store"
	"loom-engine/pkg/observability"
)

// Page size bounds for item lists.
const (
	DefaultPageSize = 30
	MaxPageSize     = 100
)

// ItemFilters is the active filter set of an item query.
type ItemFilters struct {
	FolderID *string
	Search   string
	Label    *string
	Platform *string
}

// Matches evaluates the same predicate locally that the remote list endpoint
// applies, so provisional inserts only appear when a refetch would also
// return them.
func (f ItemFilters) Matches(it *item.Item) bool {
	if f.FolderID != nil && it.FolderID != *f.FolderID {
		return false
	}
	if f.Label != nil && (it.Label == nil || *it.Label != *f.Label) {
		return false
	}
	if f.Platform != nil && (it.Platform == nil || *it.Platform != *f.Platform) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		inTitle := strings.Contains(strings.ToLower(it.Title), needle)
		inNotes := it.Notes != nil && strings.Contains(strings.ToLower(*it.Notes), needle)
		if !inTitle && !inNotes {
			return false
		}
	}
	return true
}

func (f ItemFilters) key() string {
	return fmt.Sprintf("%s|%s|%s|%s", strOrEmpty(f.FolderID), f.Search, strOrEmpty(f.Label), strOrEmpty(f.Platform))
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ItemQuery tracks the paginated, filterable remote-backed item list.
// Every fetch carries a monotonic sequence number; a response arriving after
// a newer fetch was issued is discarded so a filter change can never be
// overwritten by a stale page.
type ItemQuery struct {
	remote  remote.ItemAPI
	store   *store.Store[*item.Item]
	limit   int
	logger  *zap.Logger
	metrics *observability.Metrics

	seq atomic.Uint64
	sf  singleflight.Group

	mu       sync.Mutex
	filters  ItemFilters
	page     int
	hasMore  bool
	estimate int
	loading  int // fetches in flight
}

// NewItemQuery creates an idle query; nothing is fetched until Refresh,
// SetFilters or LoadMore is called.
func NewItemQuery(api remote.ItemAPI, s *store.Store[*item.Item], limit int, logger *zap.Logger, metrics *observability.Metrics) *ItemQuery {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	return &ItemQuery{
		remote:  api,
		store:   s,
		limit:   limit,
		logger:  logger,
		metrics: metrics,
		page:    1,
	}
}

// Filters returns the active filter set.
func (q *ItemQuery) Filters() ItemFilters {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.filters
}

// SetFilters replaces the filter set, resets to page 1 and refetches. Any
// fetch still in flight for the previous filters resolves stale and is
// dropped.
func (q *ItemQuery) SetFilters(ctx context.Context, f ItemFilters) error {
	q.mu.Lock()
	q.filters = f
	q.page = 1
	q.mu.Unlock()
	return q.fetch(ctx, 1, true)
}

// Refresh refetches page 1 for the current filters, replacing local list
// state with server truth.
func (q *ItemQuery) Refresh(ctx context.Context) error {
	q.mu.Lock()
	q.page = 1
	q.mu.Unlock()
	return q.fetch(ctx, 1, true)
}

// LoadMore fetches the next page and appends it. It is a no-op while any
// fetch is already in flight or when the last page was short.
func (q *ItemQuery) LoadMore(ctx context.Context) error {
	q.mu.Lock()
	if q.loading > 0 || !q.hasMore {
		q.mu.Unlock()
		return nil
	}
	next := q.page + 1
	q.mu.Unlock()

	return q.fetch(ctx, next, false)
}

// HasMore reports whether another full page may exist. This is the full-page
// heuristic, not an exact count: true iff the last fetched page came back
// with exactly limit records.
func (q *ItemQuery) HasMore() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hasMore
}

// Page returns the last fetched page number.
func (q *ItemQuery) Page() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.page
}

// TotalEstimate returns the loaded count, doubled while more pages may
// exist. Deliberately approximate; an exact figure would need a count
// endpoint the remote does not provide.
func (q *ItemQuery) TotalEstimate() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.estimate
}

// Items returns the loaded list in store order.
func (q *ItemQuery) Items() []*item.Item {
	return q.store.All()
}

// Reset clears filters and pagination state for the sign-out lifecycle. The
// sequence bump makes any fetch still in flight resolve stale.
func (q *ItemQuery) Reset() {
	q.seq.Add(1)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.filters = ItemFilters{}
	q.page = 1
	q.hasMore = false
	q.estimate = 0
}

// fetch runs one page request. Every fetch raises loading so LoadMore stays
// a no-op while any fetch is in flight, not just another LoadMore; a rogue
// LoadMore here would take a newer sequence number and get the filter
// change's own response discarded as stale.
func (q *ItemQuery) fetch(ctx context.Context, page int, replace bool) error {
	q.mu.Lock()
	f := q.filters
	limit := q.limit
	q.loading++
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.loading--
		q.mu.Unlock()
	}()

	seq := q.seq.Add(1)
	q.metrics.FetchIssued()

	// Identical concurrent page requests collapse into one remote call.
	key := fmt.Sprintf("%s|p%d", f.key(), page)
	v, err, _ := q.sf.Do(key, func() (interface{}, error) {
		return q.remote.List(ctx, q.store.OwnerID(), remote.ListQuery{
			FolderID: f.FolderID,
			Search:   f.Search,
			Label:    f.Label,
			Platform: f.Platform,
			Page:     page,
			Limit:    limit,
		})
	})
	if err != nil {
		return err
	}
	records := v.([]*item.Item)

	q.mu.Lock()
	defer q.mu.Unlock()

	if seq != q.seq.Load() {
		q.metrics.StaleDropped()
		q.logger.Debug("discarding stale list response",
			zap.Int("page", page),
			zap.Uint64("seq", seq),
		)
		return nil
	}

	if replace {
		q.store.Reset()
	}
	q.store.UpsertMany(records)
	q.page = page
	q.hasMore = len(records) == limit

	loaded := q.store.Len()
	if q.hasMore {
		q.estimate = loaded * 2
	} else {
		q.estimate = loaded
	}
	return nil
}
