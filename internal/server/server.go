package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/metadata"

	eventbus "github.com/hanpama/gqltools/internal/eventbus"
	events "github.com/hanpama/gqltools/internal/events"
	executor "github.com/hanpama/gqltools/internal/executor"
	language "github.com/hanpama/gqltools/internal/language"
	reqid "github.com/hanpama/gqltools/internal/reqid"
)

// Executable is what a Handler serves: the validated parser schema used to
// check requests and the executor running them.
type Executable interface {
	AST() *language.Schema
	Executor() *executor.Executor
}

// Handler is an http.Handler that serves a GraphQL endpoint.
// It parses and validates requests, runs the executor, and writes
// responses in the GraphQL over HTTP JSON format.
type Handler struct {
	schema  *language.Schema
	exec    *executor.Executor
	opt     Options
	cache   *lru.Cache[string, *language.QueryDocument]
	handler http.Handler
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// MetadataHeaders lists HTTP headers to forward into outgoing gRPC
	// metadata, for resolvers calling gRPC backends.
	// Header names are case-insensitive. Default is none.
	MetadataHeaders []string

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool

	// QueryCacheSize is the number of validated query documents kept.
	// 0 disables the cache.
	QueryCacheSize int

	Logger logrus.FieldLogger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithQueryCache(size int) Option     { return func(o *Options) { o.QueryCacheSize = size } }
func WithGraphiQL(enable bool) Option    { return func(o *Options) { o.GraphiQL = enable } }
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Options) { o.Logger = l }
}
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a GraphQL HTTP handler for s.
func New(s Executable, opts ...Option) (*Handler, error) {
	if s == nil || s.AST() == nil || s.Executor() == nil {
		return nil, errors.New("server: executable schema is required")
	}
	op := Options{Timeout: 10 * time.Second, GraphiQL: true, QueryCacheSize: 1000}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = logrus.StandardLogger()
	}

	h := &Handler{schema: s.AST(), exec: s.Executor(), opt: op}
	if op.QueryCacheSize > 0 {
		cache, err := lru.New[string, *language.QueryDocument](op.QueryCacheSize)
		if err != nil {
			return nil, fmt.Errorf("server: query cache: %w", err)
		}
		h.cache = cache
	}

	h.handler = http.HandlerFunc(h.serve)
	if len(op.CORS.AllowedOrigins) > 0 {
		h.handler = cors.New(cors.Options{
			AllowedOrigins: op.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{reqid.Header},
		}).Handler(h.handler)
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	rid := r.Header.Get(reqid.Header)
	if rid == "" {
		ctx, rid = reqid.NewContext(ctx)
	} else {
		ctx = reqid.WithID(ctx, rid)
	}
	w.Header().Set(reqid.Header, rid)

	status, operations := http.StatusOK, 0
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{
			Request:    r,
			Status:     status,
			Operations: operations,
			Duration:   time.Since(start),
		})
	}()

	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, errorResult("method not allowed"), h.opt.Pretty)
		return
	}

	// Serve GraphiQL IDE when enabled and the client expects HTML.
	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	ctx = metadata.NewOutgoingContext(ctx, h.forwardedMetadata(r, rid))

	req, batch, perr := parseRequest(r, h.opt.MaxBodyBytes)
	if perr != nil {
		status = http.StatusBadRequest
		if errors.Is(perr, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResult(perr.Error()), h.opt.Pretty)
		return
	}

	logger := h.opt.Logger.WithField("request_id", rid)
	if batch != nil {
		operations = len(batch)
		results := make([]*executor.ExecutionResult, len(batch))
		for i := range batch {
			results[i], _ = h.executeOne(ctx, logger, batch[i], false)
		}
		writeJSON(w, status, results, h.opt.Pretty)
		return
	}
	operations = 1
	result, err := h.executeOne(ctx, logger, req, r.Method == http.MethodGet)
	if err != nil {
		status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, status, errorResult(err.Error()), h.opt.Pretty)
		return
	}
	writeJSON(w, status, result, h.opt.Pretty)
}

// forwardedMetadata copies the configured headers into gRPC metadata and
// adds the request ID.
func (h *Handler) forwardedMetadata(r *http.Request, rid string) metadata.MD {
	md := metadata.MD{}
	if len(h.opt.MetadataHeaders) > 0 {
		allowed := make(map[string]struct{}, len(h.opt.MetadataHeaders))
		for _, hdr := range h.opt.MetadataHeaders {
			allowed[strings.ToLower(hdr)] = struct{}{}
		}
		for k, v := range r.Header {
			if _, ok := allowed[strings.ToLower(k)]; ok {
				md[strings.ToLower(k)] = v
			}
		}
	}
	md["graphql-request-id"] = []string{rid}
	return md
}

// executeOne runs req. With queryOnly set, operations other than queries are
// rejected before anything runs.
func (h *Handler) executeOne(ctx context.Context, logger logrus.FieldLogger, req GraphQLRequest, queryOnly bool) (*executor.ExecutionResult, error) {
	start := time.Now()
	doc, cached, reqErrs := h.loadQuery(req.Query)

	opType := ""
	if doc != nil {
		opDef := doc.Operations.ForName(req.OperationName)
		if opDef == nil && len(doc.Operations) == 1 {
			opDef = doc.Operations[0]
		}
		if opDef != nil {
			opType = string(opDef.Operation)
		}
	}
	if queryOnly && opType != "" && opType != string(language.Query) {
		return nil, fmt.Errorf("%s operations are not allowed over GET", opType)
	}
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})

	var result *executor.ExecutionResult
	if reqErrs != nil {
		result = &executor.ExecutionResult{Errors: executor.RequestErrors(reqErrs)}
	} else {
		result = h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	}

	errs := make([]error, len(result.Errors))
	for i := range result.Errors {
		errs[i] = result.Errors[i]
	}
	if len(errs) > 0 {
		logger.WithFields(logrus.Fields{
			"operation": req.OperationName,
			"errors":    len(errs),
		}).Debugf("graphql request finished with errors: %s", errs[0])
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Duration:      time.Since(start),
		Cached:        cached,
	})
	return result, nil
}

// loadQuery parses and validates query, consulting the cache first. Only
// valid documents are cached.
func (h *Handler) loadQuery(query string) (*language.QueryDocument, bool, language.ErrorList) {
	if h.cache != nil {
		if doc, ok := h.cache.Get(query); ok {
			return doc, true, nil
		}
	}
	doc, errs := language.LoadQuery(h.schema, query)
	if errs != nil {
		return nil, false, errs
	}
	if h.cache != nil {
		h.cache.Add(query, doc)
	}
	return doc, false, nil
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

var errBodyTooLarge = errors.New("body too large")

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, errors.New("missing 'query'")
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, errors.New("invalid 'variables' JSON")
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return GraphQLRequest{}, nil, errors.New("unsupported Content-Type")
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return GraphQLRequest{}, nil, errors.New("failed to read body")
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return GraphQLRequest{}, nil, errBodyTooLarge
	}

	if len(body) > 0 && body[0] == '[' {
		var arr []GraphQLRequest
		if err := json.Unmarshal(body, &arr); err != nil {
			return GraphQLRequest{}, nil, errors.New("invalid JSON")
		}
		if len(arr) == 0 {
			return GraphQLRequest{}, nil, errors.New("empty batch")
		}
		return GraphQLRequest{}, arr, nil
	}
	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GraphQLRequest{}, nil, errors.New("invalid JSON")
	}
	if req.Query == "" {
		return GraphQLRequest{}, nil, errors.New("missing 'query'")
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return req, nil, nil
}

// ------------------ Response formatting ------------------

func errorResult(message string) *executor.ExecutionResult {
	return &executor.ExecutionResult{Errors: []executor.GraphQLError{{Message: message}}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func acceptsHTML(accept string) bool {
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text/html") {
			return true
		}
	}
	return false
}
