package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	postgrest "github.com/supabase-community/postgrest-go"
	supabase "github.com/supabase-community/supabase-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"loom-engine/internal/apperrors"
	"loom-engine/internal/domain/folder"
	"loom-engine/internal/domain/item"
)

// Config tunes the Supabase-backed remote adapter.
type Config struct {
	FoldersTable string
	ItemsTable   string
	// Timeout bounds every remote call; a timed-out call is a failure and
	// triggers rollback upstream.
	Timeout time.Duration
}

// DefaultTimeout applies when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Client implements the remote contract on top of supabase-go / PostgREST.
// All calls share one circuit breaker: a flapping backend trips the breaker
// and failures surface immediately as retryable Network errors.
type Client struct {
	sb      *supabase.Client
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewClient wraps an authenticated supabase client.
func NewClient(sb *supabase.Client, cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FoldersTable == "" {
		cfg.FoldersTable = "folders"
	}
	if cfg.ItemsTable == "" {
		cfg.ItemsTable = "items"
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "loom-remote",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		sb:      sb,
		cfg:     cfg,
		breaker: breaker,
		tracer:  otel.Tracer("loom-engine/remote"),
		logger:  logger,
	}
}

// Folders returns the folder endpoint view of the client.
func (c *Client) Folders() FolderAPI { return &folderRemote{c} }

// Items returns the item endpoint view of the client.
func (c *Client) Items() ItemAPI { return &itemRemote{c} }

type callResult struct {
	data []byte
	err  error
}

// run executes one remote call under the shared timeout, breaker and span.
// The PostgREST builder offers no context hook, so the deadline is enforced
// here: the call runs in its own goroutine and a late response is abandoned.
func (c *Client) run(ctx context.Context, op string, fn func() ([]byte, error)) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, op)
	defer span.End()

	out, err := c.breaker.Execute(func() (interface{}, error) {
		done := make(chan callResult, 1)
		go func() {
			data, err := fn()
			done <- callResult{data, err}
		}()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-done:
			return res.data, res.err
		}
	})
	if err != nil {
		span.RecordError(err)
		decoded := decodeError(op, err)
		c.logger.Warn("remote call failed", zap.String("op", op), zap.Error(err))
		return nil, decoded
	}
	data, _ := out.([]byte)
	return data, nil
}

// Backoff for idempotent reads.
const (
	listRetries   = 2
	retryBaseWait = 200 * time.Millisecond
)

// runList is run plus exponential backoff on retryable failures. Only reads
// go through here; mutations are never retried because the coordinator owns
// their rollback and a blind retry could double-apply.
func (c *Client) runList(ctx context.Context, op string, fn func() ([]byte, error)) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		data, err := c.run(ctx, op, fn)
		if err == nil {
			return data, nil
		}
		if attempt >= listRetries || !apperrors.IsRetryable(err) {
			return nil, err
		}
		wait := retryBaseWait << attempt
		c.logger.Debug("retrying remote read",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
		)
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(wait):
		}
	}
}

// ---------------------------------------------------------------------------
// Folders
// ---------------------------------------------------------------------------

type folderRemote struct {
	c *Client
}

func (r *folderRemote) List(ctx context.Context, ownerID string) ([]*folder.Folder, error) {
	data, err := r.c.runList(ctx, "folders.list", func() ([]byte, error) {
		raw, _, err := r.c.sb.From(r.c.cfg.FoldersTable).
			Select("*", "", false).
			Eq("owner_id", ownerID).
			Order("created_at", &postgrest.OrderOpts{Ascending: false}).
			Execute()
		return raw, err
	})
	if err != nil {
		return nil, err
	}

	var folders []*folder.Folder
	if err := json.Unmarshal(data, &folders); err != nil {
		return nil, apperrors.Internal("DECODE_FAILED", "malformed folder list payload").
			WithOperation("folders.list").WithCause(err).Build()
	}
	return folders, nil
}

func (r *folderRemote) Create(ctx context.Context, f *folder.Folder) (*folder.Folder, error) {
	payload := map[string]interface{}{
		"owner_id":  f.OwnerID,
		"name":      f.Name,
		"parent_id": f.ParentID,
	}
	data, err := r.c.run(ctx, "folders.create", func() ([]byte, error) {
		raw, _, err := r.c.sb.From(r.c.cfg.FoldersTable).
			Insert(payload, false, "", "representation", "").
			Execute()
		return raw, err
	})
	if err != nil {
		return nil, err
	}
	return decodeSingleFolder("folders.create", data)
}

func (r *folderRemote) Update(ctx context.Context, ownerID, id string, p folder.Patch) (*folder.Folder, error) {
	payload := map[string]interface{}{}
	if p.Name != nil {
		payload["name"] = *p.Name
	}
	if p.MoveToRoot {
		payload["parent_id"] = nil
	} else if p.ParentID != nil {
		payload["parent_id"] = *p.ParentID
	}

	data, err := r.c.run(ctx, "folders.update", func() ([]byte, error) {
		raw, _, err := r.c.sb.From(r.c.cfg.FoldersTable).
			Update(payload, "representation", "").
			Eq("owner_id", ownerID).
			Eq("id", id).
			Execute()
		return raw, err
	})
	if err != nil {
		return nil, err
	}
	return decodeSingleFolder("folders.update", data)
}

func (r *folderRemote) Delete(ctx context.Context, ownerID, id string) error {
	_, err := r.c.run(ctx, "folders.delete", func() ([]byte, error) {
		raw, _, err := r.c.sb.From(r.c.cfg.FoldersTable).
			Delete("minimal", "").
			Eq("owner_id", ownerID).
			Eq("id", id).
			Execute()
		return raw, err
	})
	return err
}

func decodeSingleFolder(op string, data []byte) (*folder.Folder, error) {
	var rows []*folder.Folder
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, apperrors.NotFound("REMOTE_NOT_FOUND", "no row returned for mutation").
			WithOperation(op).Build()
	}
	return rows[0], nil
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type itemRemote struct {
	c *Client
}

func (r *itemRemote) List(ctx context.Context, ownerID string, q ListQuery) ([]*item.Item, error) {
	data, err := r.c.runList(ctx, "items.list", func() ([]byte, error) {
		fb := r.c.sb.From(r.c.cfg.ItemsTable).
			Select("*", "", false).
			Eq("owner_id", ownerID)
		if q.FolderID != nil {
			fb = fb.Eq("folder_id", *q.FolderID)
		}
		if q.Label != nil {
			fb = fb.Eq("label", *q.Label)
		}
		if q.Platform != nil {
			fb = fb.Eq("platform", *q.Platform)
		}
		if search := sanitizeFilterValue(q.Search); search != "" {
			fb = fb.Or(fmt.Sprintf("title.ilike.*%s*,notes.ilike.*%s*", search, search), "")
		}
		fb = fb.Order("created_at", &postgrest.OrderOpts{Ascending: q.Ascending})
		if q.Limit > 0 {
			page := q.Page
			if page < 1 {
				page = 1
			}
			from := (page - 1) * q.Limit
			fb = fb.Range(from, from+q.Limit-1, "")
		}
		raw, _, err := fb.Execute()
		return raw, err
	})
	if err != nil {
		return nil, err
	}

	var items []*item.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperrors.Internal("DECODE_FAILED", "malformed item list payload").
			WithOperation("items.list").WithCause(err).Build()
	}
	return items, nil
}

func (r *itemRemote) Create(ctx context.Context, it *item.Item) (*item.Item, error) {
	payload := map[string]interface{}{
		"owner_id":       it.OwnerID,
		"folder_id":      it.FolderID,
		"kind":           it.Kind,
		"title":          it.Title,
		"url_or_content": it.Content,
		"label":          it.Label,
		"platform":       it.Platform,
		"notes":          it.Notes,
	}
	data, err := r.c.run(ctx, "items.create", func() ([]byte, error) {
		raw, _, err := r.c.sb.From(r.c.cfg.ItemsTable).
			Insert(payload, false, "", "representation", "").
			Execute()
		return raw, err
	})
	if err != nil {
		return nil, err
	}
	return decodeSingleItem("items.create", data)
}

func (r *itemRemote) Update(ctx context.Context, ownerID, id string, p item.Patch) (*item.Item, error) {
	payload := map[string]interface{}{}
	if p.FolderID != nil {
		payload["folder_id"] = *p.FolderID
	}
	if p.Title != nil {
		payload["title"] = *p.Title
	}
	if p.Content != nil {
		payload["url_or_content"] = *p.Content
	}
	setOpt(payload, "label", p.Label)
	setOpt(payload, "platform", p.Platform)
	setOpt(payload, "notes", p.Notes)

	data, err := r.c.run(ctx, "items.update", func() ([]byte, error) {
		raw, _, err := r.c.sb.From(r.c.cfg.ItemsTable).
			Update(payload, "representation", "").
			Eq("owner_id", ownerID).
			Eq("id", id).
			Execute()
		return raw, err
	})
	if err != nil {
		return nil, err
	}
	return decodeSingleItem("items.update", data)
}

func (r *itemRemote) Delete(ctx context.Context, ownerID, id string) error {
	_, err := r.c.run(ctx, "items.delete", func() ([]byte, error) {
		raw, _, err := r.c.sb.From(r.c.cfg.ItemsTable).
			Delete("minimal", "").
			Eq("owner_id", ownerID).
			Eq("id", id).
			Execute()
		return raw, err
	})
	return err
}

func decodeSingleItem(op string, data []byte) (*item.Item, error) {
	var rows []*item.Item
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, apperrors.NotFound("REMOTE_NOT_FOUND", "no row returned for mutation").
			WithOperation(op).Build()
	}
	return rows[0], nil
}

// PostgREST logic expressions treat commas, parens, dots and quotes as
// syntax, so they cannot appear raw inside an embedded value. Stripped
// rather than quoted: quoting disables the ilike wildcard translation.
var filterValueSanitizer = strings.NewReplacer(
	",", " ",
	"(", " ",
	")", " ",
	".", " ",
	`"`, " ",
	"\\", " ",
)

func sanitizeFilterValue(s string) string {
	return strings.TrimSpace(filterValueSanitizer.Replace(s))
}

// setOpt writes an optional field into the update payload; an empty string
// clears the column.
func setOpt(payload map[string]interface{}, column string, value *string) {
	if value == nil {
		return
	}
	if *value == "" {
		payload[column] = nil
		return
	}
	payload[column] = *value
}
