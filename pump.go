// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commpump

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/someonegg/gox/syncx"
	"go.uber.org/zap"
)

var (
	errUnknownPanic = errors.New("unknown panic")
)

type legalPanic struct {
	err error
}

// DefaultIdleInterval is how long a worker waits when it has nothing to do.
const DefaultIdleInterval = 10 * time.Millisecond

// Handler is the inbound value processor.
type Handler[T any] interface {
	Process(ctx context.Context, v T)
}

// The HandlerFunc type is an adapter to allow the use of
// ordinary functions as value handlers.
type HandlerFunc[T any] func(ctx context.Context, v T)

// Process calls f(ctx, v).
func (f HandlerFunc[T]) Process(ctx context.Context, v T) {
	f(ctx, v)
}

type Statistics struct {
	// from Transport
	ReadCount    int64
	ReadBytes    int64
	DecodedCount int64

	// to Transport
	WrittenCount int64
	WrittenBytes int64
	EncodeErrors int64
	// abandoned after a send error
	DroppedCount int64

	// Output call
	OutputCount int64
}

type Option func(*options)

type options struct {
	logger *zap.Logger
	idle   time.Duration
}

// WithLogger sets the logger, the default is zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithIdleInterval sets the polling interval used by both workers.
func WithIdleInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idle = d
		}
	}
}

// Worker is the completion handle of one pump loop.
type Worker struct {
	name  string
	err   error
	doneD syncx.DoneChan
}

func newWorker(name string) Worker {
	return Worker{name: name, doneD: syncx.NewDoneChan()}
}

func (w *Worker) Name() string {
	return w.name
}

// Done returns a done channel, it will be signaled when the worker stopped.
func (w *Worker) Done() syncx.DoneChanR {
	return w.doneD.R()
}

func (w *Worker) Stopped() bool {
	return w.doneD.R().Done()
}

// Err can only be called after the worker stopped, nil means the worker
// observed termination.
func (w *Worker) Err() error {
	return w.err
}

// Wait waits for the worker to stop and returns its error. If ctx is done
// first, ctx's error is returned.
func (w *Worker) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.doneD:
		return w.err
	}
}

// Pump represents a packet-pump, it has two working loops which move
// values between the queues and the transport, one per direction.
//
// The loops are independent, a transport error stops only the loop that
// saw it.
//
// Pump supports concurrently access.
type Pump[T any] struct {
	quit    context.Context
	quitF   context.CancelFunc
	started atomic.Bool
	stopD   syncx.DoneChan

	t   Transport
	dec Decoder[T]
	enc Encoder[T]

	inQ  *Queue[T]
	outQ *Queue[T]

	r Worker
	w Worker

	stat Statistics

	log       *zap.Logger
	idle      time.Duration
	panicLogF func(interface{})
}

// NewPump allocates and returns a new Pump over a connected transport.
//
// dec is owned by the read loop and enc by the write loop, a stateful
// codec must not be passed as both. If t implements io.Closer, it will be
// closed when both loops have stopped.
func NewPump[T any](t Transport, dec Decoder[T], enc Encoder[T], opts ...Option) *Pump[T] {
	o := options{idle: DefaultIdleInterval}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.L()
	}

	p := &Pump[T]{
		stopD: syncx.NewDoneChan(),

		t:   t,
		dec: dec,
		enc: enc,

		inQ:  NewQueue[T](),
		outQ: NewQueue[T](),

		r: newWorker("read"),
		w: newWorker("write"),

		log:  o.logger,
		idle: o.idle,
	}
	p.quit, p.quitF = context.WithCancel(context.Background())
	p.panicLogF = p.logPanic
	return p
}

// Spawn builds the transport with f, then starts a pump over it. On a
// build error nothing is started.
//
// ctx only bounds the build, use Terminate to stop the pump.
func Spawn[T any](ctx context.Context, f Factory, dec Decoder[T], enc Encoder[T], opts ...Option) (*Pump[T], error) {
	t, err := f.Build(ctx)
	if err != nil {
		return nil, err
	}

	p := NewPump(t, dec, enc, opts...)
	p.Start(nil)
	return p, nil
}

// The default panic log function.
func (p *Pump[T]) logPanic(v interface{}) {
	p.log.Error("pump panic", zap.Any("panic", v), zap.Stack("stack"))
}

// SetPanicLogFunc is optional.
func (p *Pump[T]) SetPanicLogFunc(f func(panicV interface{})) {
	p.panicLogF = f
}

// Start will start the working loops. Cancelling parent terminates the pump.
func (p *Pump[T]) Start(parent context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	if parent != nil {
		context.AfterFunc(parent, p.quitF)
	}

	go p.reading()
	go p.writing()
	go p.monitor()
}

func (p *Pump[T]) monitor() {
	<-p.r.doneD
	<-p.w.doneD

	defer p.stopD.SetDone()

	if c, ok := p.t.(io.Closer); ok {
		if err := c.Close(); err != nil {
			p.log.Debug("close transport", zap.Error(err))
		}
	}
}

func (p *Pump[T]) exit(w *Worker) {
	if e := recover(); e != nil {
		legal := false
		switch v := e.(type) {
		case legalPanic:
			legal = true
			w.err = v.err
		case error:
			w.err = v
		default:
			w.err = errUnknownPanic
		}
		if !legal && p.panicLogF != nil {
			p.panicLogF(e)
		}
	}

	if w.err != nil {
		p.log.Error("pump worker stopped", zap.String("worker", w.name), zap.Error(w.err))
	} else {
		p.log.Debug("pump worker stopped", zap.String("worker", w.name))
	}
	w.doneD.SetDone()
}

// idle waits for the idle interval, termination or wakeC.
func (p *Pump[T]) idleWait(t *time.Timer, wakeC <-chan struct{}) {
	t.Reset(p.idle)
	select {
	case <-t.C:
		return
	case <-p.quit.Done():
	case <-wakeC:
	}
	if !t.Stop() {
		<-t.C
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

func (p *Pump[T]) reading() {
	defer p.exit(&p.r)

	t := newStoppedTimer()

	for q := false; !q; {
		if b := p.recv(); len(b) > 0 {
			for v, ok := p.dec.Decode(b); ok; v, ok = p.dec.Decode(nil) {
				p.input(v)
			}
		} else {
			p.idleWait(t, nil)
		}

		select {
		case <-p.quit.Done():
			q = true
		default:
		}
	}
}

func (p *Pump[T]) recv() []byte {
	b, err := p.t.Recv()
	if err != nil {
		panic(legalPanic{err})
	}
	if len(b) > 0 {
		atomic.AddInt64(&p.stat.ReadCount, 1)
		atomic.AddInt64(&p.stat.ReadBytes, int64(len(b)))
	}
	return b
}

func (p *Pump[T]) input(v T) {
	if err := p.inQ.Push(v); err != nil {
		panic(legalPanic{err})
	}
	atomic.AddInt64(&p.stat.DecodedCount, 1)
}

func (p *Pump[T]) writing() {
	defer p.exit(&p.w)

	t := newStoppedTimer()

	for q := false; !q; {
		if batch := p.outQ.Drain(); len(batch) > 0 {
			p.writeBatch(batch)
		} else {
			p.idleWait(t, p.outQ.Ready())
		}

		select {
		case <-p.quit.Done():
			q = true
		default:
		}
	}
}

func (p *Pump[T]) writeBatch(batch []T) {
	for i, v := range batch {
		b, err := p.enc.Encode(v)
		if err != nil {
			atomic.AddInt64(&p.stat.EncodeErrors, 1)
			p.log.Warn("pump encode", zap.Error(err))
			continue
		}

		if err = p.t.Send(b); err != nil {
			atomic.AddInt64(&p.stat.DroppedCount, int64(len(batch)-i-1))
			panic(legalPanic{err})
		}
		atomic.AddInt64(&p.stat.WrittenCount, 1)
		atomic.AddInt64(&p.stat.WrittenBytes, int64(len(b)))
	}
}

// Terminate requests to stop the pump, the working loops will stop
// asynchronously at their next iteration. In-flight transport calls are not
// interrupted.
func (p *Pump[T]) Terminate() {
	p.quitF()
}

// StopD returns a done channel, it will be signaled when both loops have
// stopped and the transport has been released.
func (p *Pump[T]) StopD() syncx.DoneChanR {
	return p.stopD.R()
}

func (p *Pump[T]) Stopped() bool {
	return p.stopD.R().Done()
}

// Reader returns the read loop's completion handle.
func (p *Pump[T]) Reader() *Worker {
	return &p.r
}

// Writer returns the write loop's completion handle.
func (p *Pump[T]) Writer() *Worker {
	return &p.w
}

// Error can only be called after pump stopped.
func (p *Pump[T]) Error() error {
	if p.r.err != nil {
		return p.r.err
	}
	return p.w.err
}

// Outbound returns the queue drained by the write loop.
func (p *Pump[T]) Outbound() *Queue[T] {
	return p.outQ
}

// Inbound returns the queue filled by the read loop. Closing it stops the
// read loop at the next decoded value.
func (p *Pump[T]) Inbound() *Queue[T] {
	return p.inQ
}

// Output puts the value to the outbound queue.
func (p *Pump[T]) Output(v T) error {
	if err := p.outQ.Push(v); err != nil {
		return err
	}
	atomic.AddInt64(&p.stat.OutputCount, 1)
	return nil
}

// Input takes the next inbound value. It fails with ErrPumpStopped once the
// read loop has stopped and the inbound queue is empty.
func (p *Pump[T]) Input(ctx context.Context) (T, error) {
	var zero T
	for {
		if v, ok := p.inQ.TryPop(); ok {
			return v, nil
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-p.inQ.Ready():
		case <-p.inQ.closedC:
			if v, ok := p.inQ.TryPop(); ok {
				return v, nil
			}
			return zero, ErrQueueClosed
		case <-p.r.doneD:
			if v, ok := p.inQ.TryPop(); ok {
				return v, nil
			}
			return zero, ErrPumpStopped
		}
	}
}

// Serve calls h for each inbound value until ctx is done or Input fails.
func (p *Pump[T]) Serve(ctx context.Context, h Handler[T]) error {
	for {
		v, err := p.Input(ctx)
		if err != nil {
			return err
		}
		h.Process(ctx, v)
	}
}

func (p *Pump[T]) Statistics() Statistics {
	return Statistics{
		ReadCount:    atomic.LoadInt64(&p.stat.ReadCount),
		ReadBytes:    atomic.LoadInt64(&p.stat.ReadBytes),
		DecodedCount: atomic.LoadInt64(&p.stat.DecodedCount),
		WrittenCount: atomic.LoadInt64(&p.stat.WrittenCount),
		WrittenBytes: atomic.LoadInt64(&p.stat.WrittenBytes),
		EncodeErrors: atomic.LoadInt64(&p.stat.EncodeErrors),
		DroppedCount: atomic.LoadInt64(&p.stat.DroppedCount),
		OutputCount:  atomic.LoadInt64(&p.stat.OutputCount),
	}
}

// UnderlyingTransport returns the internal transport.
func (p *Pump[T]) UnderlyingTransport() Transport {
	return p.t
}
