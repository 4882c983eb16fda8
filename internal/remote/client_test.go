package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

type graphQLServer struct {
	t       *testing.T
	mu      sync.Mutex
	queries []string
	auth    []string
	respond func(call int, query string) (int, string)
}

func newGraphQLServer(t *testing.T, respond func(call int, query string) (int, string)) (*graphQLServer, *httptest.Server) {
	t.Helper()
	gs := &graphQLServer{t: t, respond: respond}
	srv := httptest.NewServer(http.HandlerFunc(gs.serve))
	t.Cleanup(srv.Close)
	return gs, srv
}

func (g *graphQLServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		g.t.Errorf("decode request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	g.mu.Lock()
	g.queries = append(g.queries, req.Query)
	g.auth = append(g.auth, r.Header.Get("Authorization"))
	call := len(g.queries)
	g.mu.Unlock()

	status, payload := g.respond(call, req.Query)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func (g *graphQLServer) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.queries...)
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...ClientOption) *Client {
	t.Helper()
	transport, err := NewHTTPTransport(HTTPTransportConfig{
		Endpoint: srv.URL,
		Tokens:   StaticToken("secret-token"),
		Client:   srv.Client(),
	})
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	return NewClient(transport, opts...)
}

var createNamePattern = regexp.MustCompile(`createItem\(input:\{name:"((?:[^"\\]|\\.)*)"`)

func createResponse(query string) string {
	matches := createNamePattern.FindAllStringSubmatch(query, -1)
	parts := make([]string, 0, len(matches))
	for i, match := range matches {
		parts = append(parts, fmt.Sprintf(`"item%d":{"item":{"itemId":"id-%s","name":"%s","path":"/x/%s","language":{"name":"en"},"fields":{"nodes":[]}}}`, i, match[1], match[1], match[1]))
	}
	return `{"data":{` + strings.Join(parts, ",") + `}}`
}

func TestEscape(t *testing.T) {
	got := Escape("a\\b \"quoted\"\nnext")
	want := `a\\b \"quoted\"\nnext`
	if got != want {
		t.Fatalf("Escape = %q, want %q", got, want)
	}
}

func TestEscapeControlCharacters(t *testing.T) {
	got := Escape("col1\tcol2\x0bvt\x00nul\rcr é")
	want := `col1\tcol2\u000bvt\u0000nul\rcr é`
	if got != want {
		t.Fatalf("Escape = %q, want %q", got, want)
	}
	if plain := "already safe"; Escape(plain) != plain {
		t.Fatalf("expected plain text to pass through unchanged")
	}
}

func TestGetByPath(t *testing.T) {
	gs, srv := newGraphQLServer(t, func(call int, query string) (int, string) {
		if strings.Contains(query, `path:"/missing"`) {
			return http.StatusOK, `{"data":{"item":null}}`
		}
		return http.StatusOK, `{"data":{"item":{"itemId":"{ABC}","path":"/Home/About","itemName":"About","template":{"templateId":"{T1}"}}}}`
	})
	client := newTestClient(t, srv)

	node, err := client.GetByPath(context.Background(), "/missing")
	if err != nil || node != nil {
		t.Fatalf("expected nil node without error, got %+v, %v", node, err)
	}

	node, err = client.GetByPath(context.Background(), `/Home/"About"`)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := interfaces.RemoteNode{ID: "{ABC}", Path: "/Home/About", Name: "About", TemplateID: "{T1}"}
	if *node != want {
		t.Fatalf("unexpected node %+v", node)
	}

	queries := gs.calls()
	if !strings.Contains(queries[1], `database:"master"`) || !strings.Contains(queries[1], `path:"/Home/\"About\""`) {
		t.Fatalf("unexpected query %s", queries[1])
	}
	if gs.auth[0] != "Bearer secret-token" {
		t.Fatalf("expected bearer token, got %q", gs.auth[0])
	}
}

func TestGetByPathSurfacesGraphQLErrors(t *testing.T) {
	_, srv := newGraphQLServer(t, func(int, string) (int, string) {
		return http.StatusOK, `{"errors":[{"message":"boom"}],"data":null}`
	})
	_, err := newTestClient(t, srv).GetByPath(context.Background(), "/x")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected graphql error, got %v", err)
	}
	if IsRetryable(err) {
		t.Fatal("graphql errors must not be retryable")
	}
}

func TestListChildrenIsLazyAndPaginated(t *testing.T) {
	gs, srv := newGraphQLServer(t, func(call int, query string) (int, string) {
		if !strings.Contains(query, `after:"c1"`) {
			return http.StatusOK, `{"data":{"item":{"children":{"pageInfo":{"endCursor":"c1","hasNextPage":true},"edges":[{"node":{"itemId":"1","path":"/p/a","itemName":"a","template":{"templateId":"T"}}},{"node":{"itemId":"2","path":"/p/b","itemName":"b","template":{"templateId":"T"}}}]}}}}`
		}
		return http.StatusOK, `{"data":{"item":{"children":{"pageInfo":{"endCursor":"c2","hasNextPage":false},"edges":[{"node":{"itemId":"3","path":"/p/c","itemName":"c","template":{"templateId":"T"}}}]}}}}`
	})
	client := newTestClient(t, srv)
	opts := interfaces.ListOptions{PageSize: 2, ExcludeTemplateIDs: []string{"{DATA}"}}

	seq := client.ListChildren(context.Background(), "/p", opts)
	if len(gs.calls()) != 0 {
		t.Fatal("expected no request before iteration")
	}

	var ids []string
	for node, err := range seq {
		if err != nil {
			t.Fatalf("iterate: %v", err)
		}
		ids = append(ids, node.ID)
	}
	if strings.Join(ids, ",") != "1,2,3" {
		t.Fatalf("unexpected ids %v", ids)
	}
	queries := gs.calls()
	if len(queries) != 2 {
		t.Fatalf("expected 2 page requests, got %d", len(queries))
	}
	if !strings.Contains(queries[0], `first:2`) || !strings.Contains(queries[0], `excludeTemplateIDs:["{DATA}"]`) {
		t.Fatalf("unexpected first query %s", queries[0])
	}

	for range seq {
		break
	}
	if got := len(gs.calls()); got != 3 {
		t.Fatalf("expected restart to fetch a single page, got %d total requests", got)
	}
}

func TestCreateBatchChunksInOrder(t *testing.T) {
	gs, srv := newGraphQLServer(t, func(_ int, query string) (int, string) {
		return http.StatusOK, createResponse(query)
	})
	client := newTestClient(t, srv)

	items := make([]interfaces.CreateItemInput, 5)
	for i := range items {
		items[i] = interfaces.CreateItemInput{
			Name:       fmt.Sprintf("n%d", i),
			TemplateID: "{T}",
			ParentID:   "{P}",
			Fields:     []interfaces.FieldInput{{Name: "Body", Value: "line\n\"x\""}, {Name: "", Value: "dropped"}},
		}
	}

	created, err := client.CreateBatch(context.Background(), items, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	queries := gs.calls()
	if len(queries) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(queries))
	}
	for i, want := range []int{2, 2, 1} {
		if got := strings.Count(queries[i], ":createItem("); got != want {
			t.Fatalf("call %d: expected %d items, got %d", i, want, got)
		}
	}
	if len(created) != 5 {
		t.Fatalf("expected 5 created nodes, got %d", len(created))
	}
	for i, node := range created {
		if node.Name != fmt.Sprintf("n%d", i) {
			t.Fatalf("result %d out of order: %s", i, node.Name)
		}
	}
	if !strings.Contains(queries[0], `value:"line\n\"x\""`) {
		t.Fatalf("expected escaped field value, got %s", queries[0])
	}
	if strings.Contains(queries[0], "dropped") {
		t.Fatalf("expected nameless field to be dropped")
	}
	if !strings.Contains(queries[0], `language:"en"`) {
		t.Fatalf("expected default language in %s", queries[0])
	}
}

func TestCreateBatchChunkFailureReportsCompleted(t *testing.T) {
	gs, srv := newGraphQLServer(t, func(call int, query string) (int, string) {
		if call == 2 {
			return http.StatusServiceUnavailable, `{"message":"busy"}`
		}
		return http.StatusOK, createResponse(query)
	})
	client := newTestClient(t, srv)

	items := make([]interfaces.CreateItemInput, 5)
	for i := range items {
		items[i] = interfaces.CreateItemInput{Name: fmt.Sprintf("n%d", i), TemplateID: "{T}"}
	}

	created, err := client.CreateBatch(context.Background(), items, 2)
	if created != nil {
		t.Fatalf("expected no partial results, got %v", created)
	}
	batchErr, ok := AsBatchError(err)
	if !ok {
		t.Fatalf("expected BatchTransportError, got %T %v", err, err)
	}
	if batchErr.Completed != 2 || batchErr.Op != "create" {
		t.Fatalf("unexpected batch error %+v", batchErr)
	}
	if !IsRetryable(err) {
		t.Fatal("expected 503 to be retryable")
	}
	if !goerrors.IsCategory(batchErr.Err, goerrors.CategoryExternal) {
		t.Fatalf("expected external category, got %v", batchErr.Err)
	}
	if len(gs.calls()) != 2 {
		t.Fatalf("expected the third chunk not to be sent, got %d calls", len(gs.calls()))
	}
}

func TestCreateBatchPartialChunkCountsEarlierChunksOnly(t *testing.T) {
	_, srv := newGraphQLServer(t, func(call int, query string) (int, string) {
		if call == 2 {
			return http.StatusOK, `{"data":{"item0":{"item":{"itemId":"id-n2","name":"n2","path":"/x/n2","language":{"name":"en"},"fields":{"nodes":[]}}},"item1":{"item":null}}}`
		}
		return http.StatusOK, createResponse(query)
	})
	client := newTestClient(t, srv)

	items := make([]interfaces.CreateItemInput, 4)
	for i := range items {
		items[i] = interfaces.CreateItemInput{Name: fmt.Sprintf("n%d", i), TemplateID: "{T}"}
	}

	_, err := client.CreateBatch(context.Background(), items, 2)
	batchErr, ok := AsBatchError(err)
	if !ok {
		t.Fatalf("expected BatchTransportError, got %T %v", err, err)
	}
	if batchErr.Completed != 2 {
		t.Fatalf("expected only the first chunk to be counted, got %d", batchErr.Completed)
	}
	if !strings.Contains(err.Error(), "n3") {
		t.Fatalf("expected the rejected item to be named, got %v", err)
	}
}

func TestUpdateBatchStopsAtFirstFailure(t *testing.T) {
	gs, srv := newGraphQLServer(t, func(call int, _ string) (int, string) {
		if call == 2 {
			return http.StatusOK, `{"errors":[{"message":"field not found"}]}`
		}
		return http.StatusOK, `{"data":{}}`
	})
	client := newTestClient(t, srv, WithLanguage("es"))

	items := []interfaces.UpdateItemInput{
		{ItemID: "1", Fields: []interfaces.FieldInput{{Name: "Title", Value: "a"}}},
		{ItemID: "2"},
		{ItemID: "3"},
	}
	if client.UpdateBatch(context.Background(), items, 1) {
		t.Fatal("expected update failure")
	}
	queries := gs.calls()
	if len(queries) != 2 {
		t.Fatalf("expected to stop after the failed chunk, got %d calls", len(queries))
	}
	if !strings.Contains(queries[0], `updateItem(input:{itemId:"1",language:"es"`) {
		t.Fatalf("unexpected update mutation %s", queries[0])
	}

	if !client.UpdateBatch(context.Background(), nil, 1) {
		t.Fatal("expected empty update to succeed")
	}
}

func TestTransportStatusErrors(t *testing.T) {
	_, srv := newGraphQLServer(t, func(int, string) (int, string) {
		return http.StatusNotFound, `nope`
	})
	_, err := newTestClient(t, srv).GetByPath(context.Background(), "/x")
	if err == nil {
		t.Fatal("expected status error")
	}
	if IsRetryable(err) {
		t.Fatal("404 should not be retryable")
	}
	var typed *goerrors.Error
	if !errors.As(err, &typed) || typed.Metadata["status"] != http.StatusNotFound {
		t.Fatalf("expected status metadata, got %v", err)
	}

	if _, err := NewHTTPTransport(HTTPTransportConfig{}); !errors.Is(err, ErrEndpointRequired) {
		t.Fatalf("expected ErrEndpointRequired, got %v", err)
	}
	if got := AuthoringEndpoint("https://cm.example.org/"); got != "https://cm.example.org/sitecore/api/authoring/graphql/v1" {
		t.Fatalf("unexpected endpoint %s", got)
	}
}
