package remote

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

const (
	DefaultDatabase  = "master"
	DefaultLanguage  = "en"
	DefaultPageSize  = 50
	DefaultBatchSize = 50
)

var ErrTransportRequired = errors.New("remote: transport is required")

// Client talks to the authoring GraphQL API through a TransportClient.
type Client struct {
	transport interfaces.TransportClient
	database  string
	language  string
	pageSize  int
	batchSize int
	logger    interfaces.Logger
}

var _ interfaces.RemoteContentClient = (*Client)(nil)

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithDatabase selects the content database queried by reads.
func WithDatabase(name string) ClientOption {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			c.database = trimmed
		}
	}
}

// WithLanguage sets the language used when an input does not carry one.
func WithLanguage(language string) ClientOption {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(language); trimmed != "" {
			c.language = trimmed
		}
	}
}

// WithPageSize sets the default number of children fetched per page.
func WithPageSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithBatchSize sets the chunk size used when callers pass a non-positive size.
func WithBatchSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.batchSize = size
		}
	}
}

// WithLogger overrides the client logger.
func WithLogger(logger interfaces.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a GraphQL client over transport.
func NewClient(transport interfaces.TransportClient, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		database:  DefaultDatabase,
		language:  DefaultLanguage,
		pageSize:  DefaultPageSize,
		batchSize: DefaultBatchSize,
		logger:    logging.NoOp(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetByPath returns the item at path or nil when the remote has none.
func (c *Client) GetByPath(ctx context.Context, path string) (*interfaces.RemoteNode, error) {
	data, err := c.do(ctx, itemQuery(c.database, path))
	if err != nil {
		return nil, err
	}
	item := data.Get("item")
	if !item.Exists() || item.Type == gjson.Null {
		return nil, nil
	}
	node := parseNode(item)
	return &node, nil
}

// ListChildren walks the children of parentPath page by page. Pages are
// fetched only as the sequence is consumed.
func (c *Client) ListChildren(ctx context.Context, parentPath string, opts interfaces.ListOptions) iter.Seq2[interfaces.RemoteNode, error] {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	return func(yield func(interfaces.RemoteNode, error) bool) {
		cursor := ""
		for {
			data, err := c.do(ctx, childrenQuery(c.database, parentPath, cursor, pageSize, opts))
			if err != nil {
				yield(interfaces.RemoteNode{}, err)
				return
			}
			children := data.Get("item.children")
			if !children.Exists() || children.Type == gjson.Null {
				return
			}
			for _, edge := range children.Get("edges").Array() {
				if !yield(parseNode(edge.Get("node")), nil) {
					return
				}
			}
			next := children.Get("pageInfo.endCursor").String()
			if !children.Get("pageInfo.hasNextPage").Bool() || next == "" || next == cursor {
				return
			}
			cursor = next
		}
	}
}

// CreateBatch creates items one chunk per request.
func (c *Client) CreateBatch(ctx context.Context, items []interfaces.CreateItemInput, batchSize int) ([]interfaces.CreatedNode, error) {
	size := c.chunkSize(batchSize)
	created := make([]interfaces.CreatedNode, 0, len(items))
	for chunk := range slices.Chunk(items, size) {
		started := time.Now()
		data, err := c.do(ctx, createMutation(chunk, c.language))
		if err != nil {
			c.logger.Error("remote.create.chunk_failed",
				"completed", len(created),
				"chunk_size", len(chunk),
				"error", err,
			)
			return nil, &BatchTransportError{Op: "create", Completed: len(created), Err: err}
		}
		for i := range chunk {
			result := data.Get(alias(i) + ".item")
			if !result.Exists() || result.Type == gjson.Null {
				err := rejectedError([]string{"no item returned for " + chunk[i].Name})
				return nil, &BatchTransportError{Op: "create", Completed: len(created), Err: err}
			}
			created = append(created, parseCreated(result))
		}
		c.logger.Debug("remote.create.chunk_completed",
			"chunk_size", len(chunk),
			"completed", len(created),
			"elapsed", time.Since(started),
		)
	}
	return created, nil
}

// UpdateBatch applies updates one chunk per request and stops at the first
// failure.
func (c *Client) UpdateBatch(ctx context.Context, items []interfaces.UpdateItemInput, batchSize int) bool {
	size := c.chunkSize(batchSize)
	completed := 0
	for chunk := range slices.Chunk(items, size) {
		if _, err := c.do(ctx, updateMutation(chunk, c.language)); err != nil {
			c.logger.Error("remote.update.chunk_failed",
				"completed", completed,
				"chunk_size", len(chunk),
				"error", err,
			)
			return false
		}
		completed += len(chunk)
	}
	return true
}

func (c *Client) chunkSize(requested int) int {
	if requested > 0 {
		return requested
	}
	return c.batchSize
}

type request struct {
	Query string `json:"query"`
}

// do sends query and returns the "data" member of the response. GraphQL
// level errors are returned as rejected-request errors.
func (c *Client) do(ctx context.Context, query string) (gjson.Result, error) {
	if c.transport == nil {
		return gjson.Result{}, ErrTransportRequired
	}
	payload, err := json.Marshal(request{Query: query})
	if err != nil {
		return gjson.Result{}, err
	}
	body, err := c.transport.Send(ctx, payload)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, rejectedError([]string{"response is not valid json"})
	}
	response := gjson.ParseBytes(body)
	if errs := response.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		messages := make([]string, 0, len(errs.Array()))
		for _, e := range errs.Array() {
			messages = append(messages, e.Get("message").String())
		}
		return gjson.Result{}, rejectedError(messages)
	}
	return response.Get("data"), nil
}

func parseNode(item gjson.Result) interfaces.RemoteNode {
	return interfaces.RemoteNode{
		ID:         item.Get("itemId").String(),
		Path:       item.Get("path").String(),
		Name:       item.Get("itemName").String(),
		TemplateID: item.Get("template.templateId").String(),
	}
}

func parseCreated(item gjson.Result) interfaces.CreatedNode {
	node := interfaces.CreatedNode{
		ID:       item.Get("itemId").String(),
		Name:     item.Get("name").String(),
		Path:     item.Get("path").String(),
		Language: item.Get("language.name").String(),
	}
	for _, field := range item.Get("fields.nodes").Array() {
		node.Fields = append(node.Fields, interfaces.FieldInput{
			Name:  field.Get("name").String(),
			Value: field.Get("value").String(),
		})
	}
	return node
}
