// Package operation drives a submitted generation request to completion.
// It submits the request, then re-queries the remote operation on a fixed
// interval until it reports done, bounded by a maximum wall time.
package operation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"veogen-api/internal/generation"
	"veogen-api/internal/veo"
)

// ErrTimeout is returned when an operation does not reach a terminal
// state within the configured maximum wait. It is distinct from a remote
// failure: the service never reported anything, the client gave up.
var ErrTimeout = errors.New("operation: polling timed out")

// Client is the subset of the Veo client the poller needs.
type Client interface {
	Submit(ctx context.Context, req *generation.Request) (veo.Operation, error)
	Operation(ctx context.Context, name string) (veo.Operation, error)
}

// Poller submits requests and polls them to completion. The interval and
// maximum wait are injectable so tests do not sleep in real time.
type Poller struct {
	client   Client
	interval time.Duration
	maxWait  time.Duration
	logger   *slog.Logger
}

// Option is a function that configures a Poller.
type Option func(*Poller)

// WithInterval sets the delay between status queries.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithMaxWait bounds the total time spent polling a single operation.
func WithMaxWait(d time.Duration) Option {
	return func(p *Poller) {
		p.maxWait = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

// NewPoller creates a Poller with a 10 second interval and a 15 minute
// maximum wait unless configured otherwise.
func NewPoller(client Client, opts ...Option) *Poller {
	p := &Poller{
		client:   client,
		interval: 10 * time.Second,
		maxWait:  15 * time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run submits the request and polls until the operation is done, then
// maps the terminal operation to a Descriptor. A terminal operation
// without a usable video yields a veo.RemoteError; exceeding the maximum
// wait yields ErrTimeout.
func (p *Poller) Run(ctx context.Context, req *generation.Request) (*veo.Descriptor, error) {
	op, err := p.client.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	p.logger.Info("operation submitted",
		slog.String("operation", op.Name),
		slog.String("mode", string(req.Mode)),
		slog.String("model", req.Model),
	)

	deadline := time.Now().Add(p.maxWait)
	polls := 0

	for !op.Done {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w after %s (operation %s)", ErrTimeout, p.maxWait, op.Name)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("operation: context cancelled: %w", ctx.Err())
		case <-time.After(p.interval):
		}

		op, err = p.client.Operation(ctx, op.Name)
		if err != nil {
			return nil, err
		}
		polls++
	}

	p.logger.Info("operation finished",
		slog.String("operation", op.Name),
		slog.Int("polls", polls),
	)

	return descriptorFrom(op, req)
}

// descriptorFrom extracts the result descriptor from a terminal operation.
func descriptorFrom(op veo.Operation, req *generation.Request) (*veo.Descriptor, error) {
	if op.ErrorMessage != "" {
		return nil, &veo.RemoteError{Message: op.ErrorMessage}
	}

	if len(op.Videos) == 0 || op.Videos[0].URI == "" {
		msg := "no video returned"
		if len(op.FilteredReasons) > 0 {
			msg = "output withheld: " + strings.Join(op.FilteredReasons, "; ")
		}
		return nil, &veo.RemoteError{Message: msg}
	}

	return &veo.Descriptor{
		URI:         op.Videos[0].URI,
		AspectRatio: req.AspectRatio,
	}, nil
}
