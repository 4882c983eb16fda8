package interfaces

import (
	"context"
	"iter"
)

// RemoteNode is an item as reported by the destination content API.
type RemoteNode struct {
	ID         string
	Path       string
	Name       string
	TemplateID string
}

// FieldInput is a name/value pair written to a single remote item. Values are
// sent raw; the remote client escapes them for the wire.
type FieldInput struct {
	Name  string
	Value string
}

// CreateItemInput describes a remote item to create under ParentID.
type CreateItemInput struct {
	Name       string
	TemplateID string
	ParentID   string
	Language   string
	Fields     []FieldInput
}

// UpdateItemInput describes field writes against an existing remote item.
type UpdateItemInput struct {
	ItemID   string
	Language string
	Fields   []FieldInput
}

// CreatedNode is the remote echo of a created item.
type CreatedNode struct {
	ID       string
	Name     string
	Path     string
	Language string
	Fields   []FieldInput
}

// ListOptions narrows a child listing.
type ListOptions struct {
	// PageSize bounds the number of children fetched per round trip.
	PageSize int
	// IncludeTemplateIDs restricts results to the supplied templates.
	IncludeTemplateIDs []string
	// ExcludeTemplateIDs removes children built from the supplied templates.
	ExcludeTemplateIDs []string
}

// RemoteContentClient abstracts the destination content API. Paths are
// '/'-delimited and matched case-insensitively by the remote.
type RemoteContentClient interface {
	// GetByPath returns the item at path, or nil when it does not exist.
	// Transport and protocol failures are returned as errors.
	GetByPath(ctx context.Context, path string) (*RemoteNode, error)
	// ListChildren yields the children of parentPath, draining every page.
	// Ranging over the sequence again starts a fresh listing.
	ListChildren(ctx context.Context, parentPath string, opts ListOptions) iter.Seq2[RemoteNode, error]
	// CreateBatch creates items in chunks of at most batchSize, one remote
	// call per chunk. Results follow input order. A failed chunk aborts the
	// call with an error that reports how many items were already created.
	CreateBatch(ctx context.Context, items []CreateItemInput, batchSize int) ([]CreatedNode, error)
	// UpdateBatch applies field updates with the same chunking. It stops at
	// the first failed chunk and reports false.
	UpdateBatch(ctx context.Context, items []UpdateItemInput, batchSize int) bool
}

// TransportClient performs an authenticated request/response round trip on
// behalf of a RemoteContentClient. Non-success responses are errors.
type TransportClient interface {
	Send(ctx context.Context, payload []byte) ([]byte, error)
}

// TokenSource supplies bearer tokens for the transport.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
