package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/morikuni/failure/v2"
	"github.com/stylusport/handbook-mcp/log"
	"github.com/stylusport/handbook-mcp/metrics"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the worker pool size used when Options.Workers is unset.
const DefaultWorkers = 4

// DefaultMaxMessageBytes caps a single inbound frame.
const DefaultMaxMessageBytes = 4 << 20

// Options configures a Server.
type Options struct {
	Workers         int
	Framing         Framing
	MaxMessageBytes int
	Metrics         *metrics.Recorder
}

// Server runs the JSON-RPC session over a byte stream: one reader feeds an
// unbounded queue, a fixed pool of workers dispatches, and one writer owns
// the output.
type Server struct {
	dispatcher *Dispatcher
	opts       Options
}

// NewServer creates a server for session s.
func NewServer(s *Session, opts Options) *Server {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = DefaultMaxMessageBytes
	}
	return &Server{
		dispatcher: NewDispatcher(s),
		opts:       opts,
	}
}

// Dispatcher returns the dispatcher the workers call.
func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Serve processes messages from r and writes responses to w. It returns
// nil when r reaches EOF or ctx is cancelled, after every accepted request
// has been answered.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	var headerSeen atomic.Bool
	fr := newFrameReader(r, s.opts.Framing, s.opts.MaxMessageBytes, &headerSeen)
	fw := newFrameWriter(w, s.opts.Framing, &headerSeen)

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	q := newQueue()
	out := make(chan []byte, s.opts.Workers)

	g, gctx := errgroup.WithContext(readCtx)
	g.Go(func() error {
		defer q.close()
		return s.read(gctx, fr, q, out)
	})

	var workers errgroup.Group
	for range s.opts.Workers {
		workers.Go(func() error {
			s.work(ctx, q)
			return nil
		})
	}
	g.Go(func() error {
		err := workers.Wait()
		s.dispatcher.Shutdown()
		close(out)
		return err
	})

	g.Go(func() error {
		return s.write(fw, out, cancel)
	})

	return g.Wait()
}

type frameResult struct {
	frame []byte
	err   error
}

func (s *Server) read(ctx context.Context, fr *frameReader, q *queue, out chan<- []byte) error {
	// ReadFrame cannot be interrupted, so it runs apart from the loop that
	// watches ctx. On cancellation it is left blocked until the process exits.
	frames := make(chan frameResult)
	go func() {
		for {
			b, err := fr.ReadFrame()
			select {
			case frames <- frameResult{frame: b, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.dispatcher.Shutdown()
			log.Info("Stopping reader", "reason", context.Cause(ctx))
			return nil
		case f := <-frames:
			if f.err != nil {
				return s.readFailed(f.err, q, out)
			}
			log.Debug("Received frame", "payload", log.Payload(f.frame))
			if err := s.accept(f.frame, q, out); err != nil {
				return err
			}
		}
	}
}

func (s *Server) readFailed(err error, q *queue, out chan<- []byte) error {
	if errors.Is(err, io.EOF) {
		log.Debug("Input closed")
		return nil
	}
	var malformed *malformedFrameError
	if errors.Is(err, errFrameTooLarge) || errors.As(err, &malformed) {
		log.Error("Unrecoverable input frame", "error", err)
		s.enqueue(q, workItem{reply: encodeResponse(response{Error: parseError(nil, err.Error()).err}), out: out})
		return failure.Wrap(err, failure.WithCode(ProtocolError), failure.Message("unrecoverable input frame"))
	}
	return failure.Wrap(err, failure.WithCode(TransportFailure), failure.Message("failed to read input"))
}

// accept queues the messages of one frame. Envelope errors are answered
// directly; an error without any recoverable id ends the session.
func (s *Server) accept(frame []byte, q *queue, out chan<- []byte) error {
	msgs, errs := decodeFrame(frame)
	for _, e := range errs {
		s.enqueue(q, workItem{reply: encodeResponse(response{ID: e.id, Error: e.err}), out: out})
		if e.fatal {
			log.Error("Undecodable message", "error", e.err.Message, "payload", log.Payload(frame))
			return failure.New(ProtocolError,
				failure.Message("unrecoverable input: "+e.err.Message),
			)
		}
		log.Warn("Invalid message", "error", e.err.Message, "payload", log.Payload(frame))
	}
	now := time.Now()
	for _, msg := range msgs {
		s.enqueue(q, workItem{msg: msg, out: out, received: now})
	}
	return nil
}

func (s *Server) enqueue(q *queue, item workItem) {
	if depth := q.push(item); depth >= 0 {
		s.opts.Metrics.SetQueueDepth(depth)
	}
}

func (s *Server) work(ctx context.Context, q *queue) {
	for {
		item, depth, ok := q.pop()
		if !ok {
			return
		}
		s.opts.Metrics.SetQueueDepth(depth)
		s.process(ctx, item)
	}
}

func (s *Server) process(ctx context.Context, item workItem) {
	if item.reply != nil {
		item.out <- item.reply
		return
	}
	msg := item.msg
	if msg.kind == kindResponse {
		log.Debug("Dropping response sent by peer", "id", string(msg.id))
		return
	}

	end := s.opts.Metrics.Begin()
	defer end()
	label := ParseMethod(msg.method).String()

	result, err := s.dispatch(ctx, msg)
	if msg.kind == kindNotification {
		if err != nil {
			log.Debug("Notification failed", "method", msg.method, "error", err)
		}
		s.opts.Metrics.ObserveRequest(label, metrics.OutcomeNotification, time.Since(item.received))
		return
	}

	resp := response{ID: msg.id}
	if err == nil {
		if result == nil {
			result = struct{}{}
		}
		resp.Result, err = json.Marshal(result)
		if err != nil {
			err = failure.Wrap(err, failure.WithCode(Internal), failure.Message("failed to encode result"))
		}
	}
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
		resp.Result = nil
		resp.Error = toRPCError(err)
		log.Debug("Request failed", "method", msg.method, "id", string(msg.id), "error", err)
	}
	s.opts.Metrics.ObserveRequest(label, outcome, time.Since(item.received))
	item.out <- encodeResponse(resp)
}

// dispatch calls the dispatcher, turning a handler panic into an error.
func (s *Server) dispatch(ctx context.Context, msg message) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panicked", "method", msg.method, "panic", r)
			result = nil
			err = failure.New(Internal, failure.Message("internal error"))
		}
	}()
	return s.dispatcher.Dispatch(ctx, msg.method, msg.params)
}

func (s *Server) write(fw *frameWriter, out <-chan []byte, cancel context.CancelFunc) error {
	var writeErr error
	for b := range out {
		if writeErr != nil {
			continue
		}
		if err := fw.WriteFrame(b); err != nil {
			log.Error("Failed to write response", "error", err)
			writeErr = failure.Wrap(err, failure.WithCode(TransportFailure), failure.Message("failed to write response"))
			s.dispatcher.Shutdown()
			cancel()
		}
	}
	return writeErr
}
