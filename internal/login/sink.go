package login

import (
	"context"
	"log/slog"
)

// Sink receives submission outcomes.
type Sink interface {
	Info(ctx context.Context, msg string, data any)
	Error(ctx context.Context, msg string, err error)
}

// SlogSink writes outcomes through a slog.Logger.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink returns a sink writing to logger, or slog.Default when nil.
func NewSlogSink(logger *slog.Logger) SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogSink{Logger: logger}
}

func (s SlogSink) Info(ctx context.Context, msg string, data any) {
	s.Logger.InfoContext(ctx, msg, "submission_id", SubmissionID(ctx), "data", data)
}

func (s SlogSink) Error(ctx context.Context, msg string, err error) {
	s.Logger.ErrorContext(ctx, msg, "submission_id", SubmissionID(ctx), "error", err)
}

// SinkFuncs adapts plain functions to a Sink. Nil functions discard.
type SinkFuncs struct {
	InfoFunc  func(ctx context.Context, msg string, data any)
	ErrorFunc func(ctx context.Context, msg string, err error)
}

func (s SinkFuncs) Info(ctx context.Context, msg string, data any) {
	if s.InfoFunc != nil {
		s.InfoFunc(ctx, msg, data)
	}
}

func (s SinkFuncs) Error(ctx context.Context, msg string, err error) {
	if s.ErrorFunc != nil {
		s.ErrorFunc(ctx, msg, err)
	}
}

type submissionIDKey struct{}

func withSubmissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, submissionIDKey{}, id)
}

// SubmissionID returns the id of the submission ctx belongs to, if any.
func SubmissionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(submissionIDKey{}).(string)
	return id
}
