package remote

import (
	"context"
	"iter"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

// RetryConfig bounds the retry decorator.
type RetryConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig returns conservative retry bounds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:        4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxElapsedTime:  time.Minute,
	}
}

// RetryingClient retries reads that fail with retryable errors. Creates and
// updates pass through untouched so partial-progress counts stay exact.
type RetryingClient struct {
	inner  interfaces.RemoteContentClient
	cfg    RetryConfig
	logger interfaces.Logger
}

var _ interfaces.RemoteContentClient = (*RetryingClient)(nil)

// NewRetryingClient decorates inner.
func NewRetryingClient(inner interfaces.RemoteContentClient, cfg RetryConfig, logger interfaces.Logger) *RetryingClient {
	defaults := DefaultRetryConfig()
	if cfg.MaxTries == 0 {
		cfg.MaxTries = defaults.MaxTries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaults.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaults.MaxInterval
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = defaults.MaxElapsedTime
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	return &RetryingClient{inner: inner, cfg: cfg, logger: logger}
}

func (r *RetryingClient) GetByPath(ctx context.Context, path string) (*interfaces.RemoteNode, error) {
	return backoff.Retry(ctx, func() (*interfaces.RemoteNode, error) {
		node, err := r.inner.GetByPath(ctx, path)
		if err != nil && !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return node, err
	}, r.options("get_by_path")...)
}

// ListChildren restarts the underlying walk after a retryable failure and
// skips the children already yielded.
func (r *RetryingClient) ListChildren(ctx context.Context, parentPath string, opts interfaces.ListOptions) iter.Seq2[interfaces.RemoteNode, error] {
	return func(yield func(interfaces.RemoteNode, error) bool) {
		delivered := 0
		stopped := false
		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			seen := 0
			for node, err := range r.inner.ListChildren(ctx, parentPath, opts) {
				if err != nil {
					if IsRetryable(err) {
						return struct{}{}, err
					}
					return struct{}{}, backoff.Permanent(err)
				}
				seen++
				if seen <= delivered {
					continue
				}
				delivered++
				if !yield(node, nil) {
					stopped = true
					return struct{}{}, nil
				}
			}
			return struct{}{}, nil
		}, r.options("list_children")...)
		if err != nil && !stopped {
			yield(interfaces.RemoteNode{}, err)
		}
	}
}

func (r *RetryingClient) CreateBatch(ctx context.Context, items []interfaces.CreateItemInput, batchSize int) ([]interfaces.CreatedNode, error) {
	return r.inner.CreateBatch(ctx, items, batchSize)
}

func (r *RetryingClient) UpdateBatch(ctx context.Context, items []interfaces.UpdateItemInput, batchSize int) bool {
	return r.inner.UpdateBatch(ctx, items, batchSize)
}

func (r *RetryingClient) options(op string) []backoff.RetryOption {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.cfg.InitialInterval
	policy.MaxInterval = r.cfg.MaxInterval
	return []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(r.cfg.MaxTries),
		backoff.WithMaxElapsedTime(r.cfg.MaxElapsedTime),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.logger.Warn("remote.retry", "operation", op, "wait", wait, "error", err)
		}),
	}
}
