package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/ghl-booking-gateway/internal/app/bootstrap"
	appconfig "github.com/wolfman30/ghl-booking-gateway/internal/config"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

// flushBudget caps how long an invocation waits for detached work.
const flushBudget = 5 * time.Second

type flusher interface {
	Flush(ctx context.Context) error
}

// adapter serves API Gateway HTTP events through the shared router.
type adapter struct {
	handler http.Handler
	tasks   flusher
	logger  *logging.Logger
}

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	app, err := bootstrap.Build(context.Background(), cfg, logger, bootstrap.Options{})
	if err != nil {
		logger.Error("failed to build gateway", "error", err)
		os.Exit(1)
	}

	a := &adapter{handler: app.Handler, tasks: app.Runner, logger: logger}
	lambda.Start(a.handle)
}

func (a *adapter) handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := buildRequest(ctx, evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	rw := newResponseWriter()
	a.handler.ServeHTTP(rw, req)

	// The execution environment freezes once we return, so finish the
	// ghost sweep and notification first.
	if a.tasks != nil {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushBudget)
		if err := a.tasks.Flush(flushCtx); err != nil {
			a.logger.Warn("detached tasks still running at end of invocation", "error", err)
		}
		cancel()
	}

	return rw.response(), nil
}

func buildRequest(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}
	if path == "" {
		path = "/"
	}
	target := path
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		target += "?" + qs
	}

	body, err := decodeBody(evt)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	if len(evt.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(evt.Cookies, "; "))
	}
	if host := strings.TrimSpace(evt.RequestContext.DomainName); host != "" {
		req.Host = host
	} else {
		req.Host = headerValue(evt.Headers, "host")
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = ip
	}
	if id := strings.TrimSpace(evt.RequestContext.RequestID); id != "" && req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", id)
	}
	return req, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(evt.Body)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// responseWriter buffers a handler's output for the Lambda response.
type responseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: http.Header{}}
}

func (w *responseWriter) Header() http.Header { return w.header }

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

func (w *responseWriter) response() events.APIGatewayV2HTTPResponse {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	headers := make(map[string]string, len(w.header))
	for k, v := range w.header {
		headers[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       w.body.String(),
	}
}
