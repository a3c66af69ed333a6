package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/ctxlog"
	"github.com/specialistvlad/protectgrid/internal/resource"
	"github.com/specialistvlad/protectgrid/internal/resourcegraph"
	"go.uber.org/multierr"
)

const (
	rootSection   = "checkpoints"
	metadataKey   = "metadata"
	graphKey      = "graph"
	resourcesPart = "resources"

	defaultMaxRetries = 5
)

// CreateOptions describe a new checkpoint.
type CreateOptions struct {
	Plan      Plan
	ExtraInfo map[string]string
}

// Option configures a Collection.
type Option func(*Collection)

// WithBackOff sets the policy used between retries of transient bank
// failures. newBackOff is called once per retried operation.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Collection) { c.newBackOff = newBackOff }
}

// WithMaxRetries bounds the number of retries of a single bank operation.
func WithMaxRetries(n uint64) Option {
	return func(c *Collection) { c.maxRetries = n }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Collection) { c.now = now }
}

// Collection manages the checkpoints of one provider.
type Collection struct {
	bank       *bank.Bank
	providerID string
	locks      *idLocks
	newBackOff func() backoff.BackOff
	maxRetries uint64
	now        func() time.Time
}

// NewCollection creates a collection over b, which should already be scoped
// to the provider.
func NewCollection(b *bank.Bank, providerID string, opts ...Option) *Collection {
	c := &Collection{
		bank:       b,
		providerID: providerID,
		locks:      newIDLocks(),
		newBackOff: defaultBackOff,
		maxRetries: defaultMaxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 15 * time.Second
	return b
}

// ProviderID returns the provider this collection belongs to.
func (c *Collection) ProviderID() string {
	return c.providerID
}

func checkpointSection(id string) string {
	return path.Join(rootSection, id)
}

func objectKey(id, name string) string {
	return path.Join(rootSection, id, name)
}

// ResourceSection returns the bank section where protection plugins keep the
// data of one resource of checkpoint id.
func (c *Collection) ResourceSection(id string, key resource.Key) *bank.Bank {
	return c.bank.Section(path.Join(rootSection, id, resourcesPart,
		url.PathEscape(key.Type), url.PathEscape(key.ID)))
}

// retry runs fn until it succeeds, fails with a non transient error, or the
// retry budget is spent.
func (c *Collection) retry(ctx context.Context, op string, fn func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	attempt := 0
	return backoff.Retry(func() error {
		if attempt > 0 {
			bankRetryCounter.WithLabelValues(op).Inc()
		}
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !bank.IsTransient(err) {
			return backoff.Permanent(err)
		}
		ctxlog.FromContext(ctx).Warn("Transient bank failure, retrying.", "op", op, "attempt", attempt, "error", err)
		return err
	}, policy)
}

// Create allocates a new checkpoint in status protecting. The metadata is
// written with a single create, so a checkpoint is either fully visible or
// absent.
func (c *Collection) Create(ctx context.Context, opts CreateOptions) (*Checkpoint, error) {
	now := c.now()
	cp := &Checkpoint{
		ID:         uuid.NewString(),
		ProviderID: c.providerID,
		Status:     StatusProtecting,
		Plan:       opts.Plan,
		ExtraInfo:  opts.ExtraInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint metadata: %w", err)
	}
	if err := c.bank.CreateObject(ctx, objectKey(cp.ID, metadataKey), data); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint %s: %w", cp.ID, err)
	}

	transitionCounter.WithLabelValues(string(cp.Status)).Inc()
	ctxlog.FromContext(ctx).Info("Checkpoint created.", "checkpoint", cp.ID, "provider", c.providerID)
	return cp, nil
}

func (c *Collection) readMetadata(ctx context.Context, id string) (*Checkpoint, error) {
	data, err := c.bank.GetObject(ctx, objectKey(id, metadataKey))
	if err != nil {
		if errors.Is(err, bank.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
		}
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", id, err)
	}
	cp := &Checkpoint{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s metadata: %w", id, err)
	}
	return cp, nil
}

func (c *Collection) writeMetadata(ctx context.Context, cp *Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint metadata: %w", err)
	}
	return c.retry(ctx, "update_metadata", func() error {
		return c.bank.UpdateObject(ctx, objectKey(cp.ID, metadataKey), data)
	})
}

// Get returns the checkpoint with its resource graph, if one was stored.
func (c *Collection) Get(ctx context.Context, id string) (*Checkpoint, error) {
	cp, err := c.readMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	g, err := c.LoadResourceGraph(ctx, id)
	switch {
	case err == nil:
		cp.ResourceGraph = g
	case !errors.Is(err, bank.ErrObjectNotFound):
		return nil, err
	}
	return cp, nil
}

// List returns every checkpoint of the provider, oldest first. Resource
// graphs are not loaded.
func (c *Collection) List(ctx context.Context) ([]*Checkpoint, error) {
	keys, err := c.bank.ListObjects(ctx, rootSection+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	var checkpoints []*Checkpoint
	for _, key := range keys {
		parts := strings.Split(key, "/")
		if len(parts) != 3 || parts[2] != metadataKey {
			continue
		}
		cp, err := c.readMetadata(ctx, parts[1])
		if err != nil {
			if errors.Is(err, ErrCheckpointNotFound) {
				continue // deleted while listing
			}
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	sort.SliceStable(checkpoints, func(i, j int) bool {
		if checkpoints[i].CreatedAt.Equal(checkpoints[j].CreatedAt) {
			return checkpoints[i].ID < checkpoints[j].ID
		}
		return checkpoints[i].CreatedAt.Before(checkpoints[j].CreatedAt)
	})
	return checkpoints, nil
}

// StoreResourceGraph persists g as the resource graph of checkpoint id.
func (c *Collection) StoreResourceGraph(ctx context.Context, id string, g *resourcegraph.Graph) error {
	data, err := resourcegraph.Marshal(g)
	if err != nil {
		return err
	}
	err = c.retry(ctx, "store_graph", func() error {
		return c.bank.UpdateObject(ctx, objectKey(id, graphKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store resource graph of checkpoint %s: %w", id, err)
	}
	return nil
}

// LoadResourceGraph reads the resource graph of checkpoint id. It returns
// bank.ErrObjectNotFound when none was stored.
func (c *Collection) LoadResourceGraph(ctx context.Context, id string) (*resourcegraph.Graph, error) {
	data, err := c.bank.GetObject(ctx, objectKey(id, graphKey))
	if err != nil {
		if errors.Is(err, bank.ErrObjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read resource graph of checkpoint %s: %w", id, err)
	}
	return resourcegraph.Unmarshal(data)
}

// transition moves checkpoint id to status to under the id lock.
func (c *Collection) transition(ctx context.Context, id string, to Status) (*Checkpoint, error) {
	unlock := c.locks.lock(id)
	defer unlock()

	var cp *Checkpoint
	err := c.retry(ctx, "get_metadata", func() (err error) {
		cp, err = c.readMetadata(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !CanTransition(cp.Status, to) {
		return nil, &InvalidStateError{ID: id, From: cp.Status, To: to}
	}
	from := cp.Status
	cp.Status = to
	cp.UpdatedAt = c.now()
	if err := c.writeMetadata(ctx, cp); err != nil {
		return nil, fmt.Errorf("failed to update checkpoint %s: %w", id, err)
	}

	transitionCounter.WithLabelValues(string(to)).Inc()
	ctxlog.FromContext(ctx).Info("Checkpoint status changed.", "checkpoint", id, "from", from, "to", to)
	return cp, nil
}

// Commit finishes a protect run: protecting becomes available on success
// and error otherwise. Committing a checkpoint that is not protecting fails
// with ErrInvalidState.
func (c *Collection) Commit(ctx context.Context, id string, success bool) (*Checkpoint, error) {
	to := StatusError
	if success {
		to = StatusAvailable
	}
	return c.transition(ctx, id, to)
}

// UpdateStatus moves checkpoint id to status, rejecting transitions the
// lifecycle does not allow.
func (c *Collection) UpdateStatus(ctx context.Context, id string, status Status) (*Checkpoint, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown checkpoint status '%s'", status)
	}
	return c.transition(ctx, id, status)
}

// Delete removes checkpoint id and everything stored under it. The
// checkpoint is first marked deleting, then its objects are removed with
// the metadata going last. Deleting a checkpoint that no longer exists
// removes any leftover objects and succeeds.
func (c *Collection) Delete(ctx context.Context, id string) error {
	logger := ctxlog.FromContext(ctx).With("checkpoint", id)

	if _, err := c.transition(ctx, id, StatusDeleting); err != nil {
		if !errors.Is(err, ErrCheckpointNotFound) {
			return err
		}
		logger.Debug("Checkpoint metadata already gone, removing leftovers.")
	}

	unlock := c.locks.lock(id)
	defer unlock()

	section := checkpointSection(id)
	var keys []string
	err := c.retry(ctx, "list", func() (err error) {
		keys, err = c.bank.ListObjects(ctx, section+"/")
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to list objects of checkpoint %s: %w", id, err)
	}

	var errs error
	meta := objectKey(id, metadataKey)
	for _, key := range keys {
		if key == meta {
			continue
		}
		errs = multierr.Append(errs, c.retry(ctx, "delete", func() error {
			return c.bank.DeleteObject(ctx, key)
		}))
	}
	if errs != nil {
		return fmt.Errorf("failed to delete objects of checkpoint %s: %w", id, errs)
	}

	err = c.retry(ctx, "delete", func() error {
		return c.bank.DeleteObject(ctx, meta)
	})
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint %s metadata: %w", id, err)
	}

	logger.Info("Checkpoint deleted.", "objects", len(keys))
	return nil
}
