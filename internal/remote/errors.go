package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-cms-sync/internal/syncerr"
)

// BatchTransportError reports a failed create or update chunk. Completed
// counts the items written by earlier chunks of the same call and is a lower
// bound: when the remote rejects only some items of the failing chunk, the
// others may already exist remotely without being counted.
type BatchTransportError struct {
	Op        string
	Completed int
	Err       error
}

func (e *BatchTransportError) Error() string {
	return fmt.Sprintf("remote: %s failed after %d items: %v", e.Op, e.Completed, e.Err)
}

func (e *BatchTransportError) Unwrap() error {
	return e.Err
}

// AsBatchError extracts a BatchTransportError from err.
func AsBatchError(err error) (*BatchTransportError, bool) {
	var batchErr *BatchTransportError
	if errors.As(err, &batchErr) {
		return batchErr, true
	}
	return nil, false
}

// metaRetryable flags transport errors worth another attempt: throttling,
// server faults and network failures.
const metaRetryable = "retryable"

// IsRetryable reports whether err was marked retryable by the transport.
func IsRetryable(err error) bool {
	var typed *goerrors.Error
	if !errors.As(err, &typed) {
		return false
	}
	retryable, _ := typed.Metadata[metaRetryable].(bool)
	return retryable
}

func statusError(status int, body []byte) error {
	message := fmt.Sprintf("remote responded %d %s", status, http.StatusText(status))
	metadata := map[string]any{
		"status":      status,
		metaRetryable: status == http.StatusTooManyRequests || status >= http.StatusInternalServerError,
	}
	if len(body) > 0 {
		metadata["body"] = truncate(string(body), 512)
	}
	return goerrors.New(message, goerrors.CategoryExternal).
		WithTextCode(syncerr.TextCodeTransportFailed).
		WithCode(status).
		WithMetadata(metadata)
}

func networkError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, "remote request failed").
		WithTextCode(syncerr.TextCodeTransportFailed).
		WithMetadata(map[string]any{metaRetryable: true})
}

func rejectedError(messages []string) error {
	return goerrors.New("remote rejected request: "+strings.Join(messages, "; "), goerrors.CategoryExternal).
		WithTextCode(syncerr.TextCodeRemoteRejected).
		WithMetadata(map[string]any{"errors": messages})
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
