// Package login turns a login form submission into one token request and
// reports the outcome to log sinks.
//
// Every submission is independent: overlapping submissions issue overlapping
// requests, nothing is de-duplicated, and completions arrive in any order.
// Cancellation is not supported. A submission keeps running after the
// caller's context is cancelled; bound it with client.WithTimeout instead.
package login

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/splax/tokenlogin/internal/form"
	"github.com/splax/tokenlogin/pkg/api/client"
)

// Messages written to the sinks.
const (
	MsgResponse = "API Response"
	MsgError    = "Error calling the API"
)

// Authenticator exchanges credentials for a decoded token response.
type Authenticator interface {
	ObtainToken(ctx context.Context, creds client.Credentials) (any, error)
}

// Fields are the inputs read on every submission.
type Fields struct {
	Username form.Field
	Password form.Field
}

// Result is the outcome of one submission. Exactly one of Data and Err is set
// on completion, except that a successful response may decode to JSON null.
type Result struct {
	ID   string
	Data any
	Err  error
}

// Handler reacts to login form submissions.
type Handler struct {
	fields   Fields
	auth     Authenticator
	sink     Sink
	metrics  *Metrics
	newID    func() string
	inflight sync.WaitGroup
}

// Option customises a Handler.
type Option func(*Handler)

// WithMetrics records submission outcomes.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithIDGenerator overrides how submission ids are produced.
func WithIDGenerator(fn func() string) Option {
	return func(h *Handler) {
		if fn != nil {
			h.newID = fn
		}
	}
}

// NewHandler constructs a Handler. A nil sink discards output.
func NewHandler(fields Fields, auth Authenticator, sink Sink, opts ...Option) *Handler {
	if sink == nil {
		sink = SinkFuncs{}
	}
	h := &Handler{
		fields: fields,
		auth:   auth,
		sink:   sink,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach registers the handler on f. Results are only reported to the sinks.
func (h *Handler) Attach(f *form.Form) {
	f.AddSubmitListener(func(ctx context.Context, ev *form.SubmitEvent) {
		h.Handle(ctx, ev)
	})
}

// Handle suppresses the event's default action, reads the fields and starts
// the token request in the background. The returned channel yields the
// Result once the outcome has been logged, then closes.
func (h *Handler) Handle(ctx context.Context, ev *form.SubmitEvent) <-chan Result {
	if ev != nil {
		ev.PreventDefault()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	creds := client.Credentials{
		Username: fieldValue(h.fields.Username),
		Password: fieldValue(h.fields.Password),
	}
	id := h.newID()
	ctx = withSubmissionID(context.WithoutCancel(ctx), id)

	out := make(chan Result, 1)
	h.inflight.Add(1)
	h.metrics.started()
	go func() {
		defer h.inflight.Done()
		defer close(out)
		out <- h.submit(ctx, id, creds)
	}()
	return out
}

// Wait blocks until every started submission has been reported.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

func (h *Handler) submit(ctx context.Context, id string, creds client.Credentials) (res Result) {
	res.ID = id
	defer func() {
		if r := recover(); r != nil {
			res.Data = nil
			res.Err = fmt.Errorf("login submission panicked: %v", r)
			h.sink.Error(ctx, MsgError, res.Err)
			h.metrics.finished(outcomeTransportError)
		}
	}()

	if h.auth == nil {
		res.Err = errors.New("login handler has no authenticator")
		h.sink.Error(ctx, MsgError, res.Err)
		h.metrics.finished(outcomeTransportError)
		return res
	}
	data, err := h.auth.ObtainToken(ctx, creds)
	if err != nil {
		res.Err = err
		h.sink.Error(ctx, MsgError, err)
		h.metrics.finished(classify(err))
		return res
	}
	res.Data = data
	h.sink.Info(ctx, MsgResponse, data)
	h.metrics.finished(outcomeSuccess)
	return res
}

func fieldValue(f form.Field) string {
	if f == nil {
		return ""
	}
	return f.Value()
}

func classify(err error) string {
	var statusErr *client.StatusError
	var parseErr *client.ParseError
	switch {
	case errors.As(err, &statusErr):
		return outcomeStatusError
	case errors.As(err, &parseErr):
		return outcomeParseError
	default:
		return outcomeTransportError
	}
}
