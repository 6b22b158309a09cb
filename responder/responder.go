/*
The package responder connects the dialogue machine to the link to the MAP module: it receives primitives,
lets the machine handle them, and sends the resulting primitives back.
*/
package responder

import (
	"context"
	"errors"
	"sync"

	"github.com/bassosimone/errclass"
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ftl/map-responder/dialogue"
	"github.com/ftl/map-responder/primitive"
	"github.com/ftl/map-responder/tlv"
)

const workerQueueSize = 16

// Link exchanges primitives with the MAP module.
type Link interface {
	Receive(ctx context.Context) (primitive.Inbound, error)
	Send(ctx context.Context, out primitive.Outbound) error
}

// Handler decides how to answer a received primitive.
type Handler interface {
	Handle(ctx context.Context, in primitive.Inbound) (dialogue.Outcome, error)
}

// Responder answers all primitives received over its link.
type Responder struct {
	handler Handler
	link    Link
	logger  zerolog.Logger
	metrics *Metrics
	workers int
}

// New returns a responder that handles primitives from the given link with the given handler,
// usually a *dialogue.Machine.
func New(handler Handler, link Link) *Responder {
	return &Responder{
		handler: handler,
		link:    link,
		logger:  zerolog.Nop(),
		workers: 1,
	}
}

// WithLogger sets the logger of this responder.
func (r *Responder) WithLogger(logger zerolog.Logger) *Responder {
	r.logger = logger
	return r
}

// WithMetrics lets this responder count into the given metrics.
func (r *Responder) WithMetrics(metrics *Metrics) *Responder {
	r.metrics = metrics
	return r
}

// WithWorkers sets the number of goroutines that handle primitives. Primitives are distributed by the
// index of their dialogue, so the primitives of one dialogue are always handled in order.
func (r *Responder) WithWorkers(workers int) *Responder {
	if workers < 1 {
		workers = 1
	}
	r.workers = workers
	return r
}

// Run receives and handles primitives until the link fails or the context is done. It returns the
// error that ended the loop.
func (r *Responder) Run(ctx context.Context) error {
	runID := runtimex.PanicOnError1(uuid.NewV7()).String()
	logger := r.logger.With().Str("run", runID).Logger()
	logger.Info().Int("workers", r.workers).Msg("responder started")
	defer logger.Info().Msg("responder stopped")

	if r.workers == 1 {
		for {
			in, err := r.link.Receive(ctx)
			if err != nil {
				return err
			}
			r.Process(ctx, in)
		}
	}

	queues := make([]chan primitive.Inbound, r.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan primitive.Inbound, workerQueueSize)
		wg.Add(1)
		go func(queue <-chan primitive.Inbound) {
			defer wg.Done()
			for in := range queue {
				r.Process(ctx, in)
			}
		}(queues[i])
	}
	defer func() {
		for _, queue := range queues {
			close(queue)
		}
		wg.Wait()
	}()

	for {
		in, err := r.link.Receive(ctx)
		if err != nil {
			return err
		}
		queue := queues[in.DialogueID.Index()%len(queues)]
		select {
		case queue <- in:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Process handles one received primitive and sends the resulting primitives in order. Primitives that
// cannot be attributed to a dialogue are dropped.
func (r *Responder) Process(ctx context.Context, in primitive.Inbound) {
	r.metrics.countReceived(in.Type.String())
	logger := r.logger.With().Str("dlg", in.DialogueID.String()).Logger()

	if in.Type != primitive.DialogueIndication && in.Type != primitive.ServiceIndication {
		logger.Debug().Str("type", in.Type.String()).Msg("dropping primitive of unexpected type")
		r.metrics.countDropped(DropUnexpectedType)
		return
	}

	outcome, err := r.handler.Handle(ctx, in)
	if err != nil {
		reason := DropInvalidSequence
		switch {
		case errors.Is(err, dialogue.ErrOutgoingDialogue):
			reason = DropOutgoing
		case errors.Is(err, dialogue.ErrOutOfRange):
			reason = DropOutOfRange
		case errors.Is(err, dialogue.ErrUnexpectedMessage):
			reason = DropUnexpectedType
		}
		logger.Debug().Err(err).Str("reason", reason).Msg("dropping primitive")
		r.metrics.countDropped(reason)
		return
	}
	r.metrics.countOutcome(outcome)

	for _, out := range outcome.Emissions {
		r.send(ctx, logger, out)
	}
}

func (r *Responder) send(ctx context.Context, logger zerolog.Logger, out primitive.Outbound) {
	err := r.link.Send(ctx, out)
	if err == nil {
		r.metrics.countSent(out.Type.String())
		return
	}

	class := errclass.New(err)
	subtype, _ := out.Subtype()
	logger.Error().Err(err).Str("class", class).Str("type", out.Type.String()).Uint8("subtype", subtype).Msg("cannot send primitive")
	r.metrics.countSendFailure(class)
	tlv.Release(out.Params)
}
