package commpump

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/someonegg/commpump/codec"
)

const testIdle = 2 * time.Millisecond

func newTestPump(t *mockTransport) *Pump[[]byte] {
	p := NewPump[[]byte](t, Passthrough{}, Passthrough{}, WithIdleInterval(testIdle))
	p.Start(nil)
	return p
}

func stopPump[T any](test *testing.T, p *Pump[T]) {
	p.Terminate()
	select {
	case <-p.StopD():
	case <-time.After(1 * time.Second):
		test.Fatal("pump stop")
	}
}

func TestPumpWriteOrder(test *testing.T) {
	t := &mockTransport{}
	p := newTestPump(t)

	p.Output([]byte{1, 2})
	p.Output([]byte{3})
	p.Output([]byte{4, 5, 6})

	want := []byte{1, 2, 3, 4, 5, 6}
	if !waitFor(time.Second, func() bool { return len(t.sentBytes()) == len(want) }) {
		test.Fatal("write count", t.sendCount())
	}
	if !bytes.Equal(t.sentBytes(), want) {
		test.Fatal("write order", t.sentBytes())
	}

	stopPump(test, p)

	if p.Reader().Err() != nil || p.Writer().Err() != nil {
		test.Fatal("pump error", p.Error())
	}
	if !t.isClosed() {
		test.Fatal("transport not closed")
	}

	s := p.Statistics()
	if s.OutputCount != 3 || s.WrittenCount != 3 || s.WrittenBytes != 6 {
		test.Fatal("statistics", s)
	}
}

func TestPumpReadOrder(test *testing.T) {
	t := &mockTransport{}
	t.feed([]byte("v1\nv"), []byte("2\r\nv3"), []byte("\n"))

	p := NewPump[string](t, codec.Lines(), codec.Lines(), WithIdleInterval(testIdle))
	p.Start(nil)
	defer stopPump(test, p)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, want := range []string{"v1", "v2", "v3"} {
		v, err := p.Input(ctx)
		if err != nil {
			test.Fatal("input", err)
		}
		if v != want {
			test.Fatal("read order", v, want)
		}
	}

	if s := p.Statistics(); s.ReadCount != 3 || s.DecodedCount != 3 {
		test.Fatal("statistics", s)
	}
}

func TestPumpReadManyFramesInOneChunk(test *testing.T) {
	t := &mockTransport{}
	t.feed([]byte("a\nb\nc\n"))

	p := NewPump[string](t, codec.Lines(), codec.Lines(), WithIdleInterval(testIdle))
	p.Start(nil)
	defer stopPump(test, p)

	if !waitFor(time.Second, func() bool { return p.Inbound().Len() == 3 }) {
		test.Fatal("read frames", p.Inbound().Len())
	}
}

func TestPumpWriteErrorIsolation(test *testing.T) {
	t := &mockTransport{wmax: 2}
	p := newTestPump(t)

	for i := 0; i < 4; i++ {
		p.Output([]byte{byte(i)})
	}

	select {
	case <-p.Writer().Done():
	case <-time.After(1 * time.Second):
		test.Fatal("write stop")
	}

	if err := p.Writer().Err(); err != io.ErrClosedPipe {
		test.Fatal("write error", err)
	}
	if t.sendCount() != 2 {
		test.Fatal("write count", t.sendCount())
	}
	if p.Reader().Stopped() {
		test.Fatal("reader stopped with writer")
	}

	// the read loop still delivers.
	t.feed([]byte("in"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := p.Input(ctx)
	if err != nil || string(v) != "in" {
		test.Fatal("read after write error", v, err)
	}

	// queued values are not consumed any more.
	n := p.Outbound().Len()
	p.Output([]byte{9})
	time.Sleep(5 * testIdle)
	if p.Outbound().Len() != n+1 {
		test.Fatal("outbound consumed after write error")
	}
	if p.Stopped() {
		test.Fatal("pump stopped with one loop alive")
	}

	stopPump(test, p)

	if p.Reader().Err() != nil {
		test.Fatal("read error", p.Reader().Err())
	}
	if p.Error() != io.ErrClosedPipe {
		test.Fatal("pump error", p.Error())
	}
}

func TestPumpWriteErrorDropsBatch(test *testing.T) {
	t := &mockTransport{wmax: 1}
	p := NewPump[[]byte](t, Passthrough{}, Passthrough{}, WithIdleInterval(testIdle))

	// queued before start, so they are one batch.
	for i := 0; i < 5; i++ {
		p.Output([]byte{byte(i)})
	}
	p.Start(nil)

	if err := p.Writer().Wait(context.Background()); err != io.ErrClosedPipe {
		test.Fatal("write error", err)
	}
	if s := p.Statistics(); s.WrittenCount != 1 || s.DroppedCount != 3 {
		test.Fatal("statistics", s)
	}
	if p.Outbound().Len() != 0 {
		test.Fatal("abandoned values requeued")
	}

	stopPump(test, p)
}

func TestPumpReadErrorIsolation(test *testing.T) {
	t := &mockTransport{rerr: io.EOF}
	p := newTestPump(t)

	if err := p.Reader().Wait(context.Background()); err != io.EOF {
		test.Fatal("read error", err)
	}

	p.Output([]byte("out"))
	if !waitFor(time.Second, func() bool { return t.sendCount() == 1 }) {
		test.Fatal("write after read error")
	}
	if p.Writer().Stopped() {
		test.Fatal("writer stopped with reader")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := p.Input(ctx); err != ErrPumpStopped {
		test.Fatal("input after read error", err)
	}

	stopPump(test, p)
}

func TestPumpTerminate(test *testing.T) {
	t := &mockTransport{}
	p := newTestPump(t)

	start := time.Now()
	p.Terminate()
	p.Terminate()

	for _, w := range []*Worker{p.Reader(), p.Writer()} {
		select {
		case <-w.Done():
		case <-time.After(1 * time.Second):
			test.Fatal("worker stop", w.Name())
		}
		if w.Err() != nil {
			test.Fatal("worker error", w.Name(), w.Err())
		}
	}
	if d := time.Since(start); d > 500*time.Millisecond {
		test.Fatal("terminate too slow", d)
	}

	<-p.StopD()

	// values queued after termination stay queued.
	p.Output([]byte("late"))
	time.Sleep(5 * testIdle)
	if p.Outbound().Len() != 1 || t.sendCount() != 0 {
		test.Fatal("value consumed after terminate")
	}
}

func TestPumpTerminateBeforeStart(test *testing.T) {
	t := &mockTransport{}
	p := NewPump[[]byte](t, Passthrough{}, Passthrough{})
	p.Terminate()
	p.Start(nil)

	select {
	case <-p.StopD():
	case <-time.After(1 * time.Second):
		test.Fatal("pump stop")
	}
}

func TestPumpParentContext(test *testing.T) {
	t := &mockTransport{}
	p := NewPump[[]byte](t, Passthrough{}, Passthrough{}, WithIdleInterval(testIdle))

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	select {
	case <-p.StopD():
	case <-time.After(1 * time.Second):
		test.Fatal("pump stop")
	}
}

func TestPumpEcho(test *testing.T) {
	t := &mockTransport{echo: true}
	p := newTestPump(t)
	defer stopPump(test, p)

	p.Output([]byte{1, 2, 3})
	p.Output([]byte{4, 5, 6})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, want := range [][]byte{{1, 2, 3}, {4, 5, 6}} {
		v, err := p.Input(ctx)
		if err != nil {
			test.Fatal("echo input", err)
		}
		if !bytes.Equal(v, want) {
			test.Fatal("echo order", v, want)
		}
	}
}

type failingEncoder struct{}

func (failingEncoder) Encode(v []byte) ([]byte, error) {
	if len(v) == 0 {
		return nil, errors.New("empty value")
	}
	return v, nil
}

func TestPumpEncodeError(test *testing.T) {
	t := &mockTransport{}
	p := NewPump[[]byte](t, Passthrough{}, failingEncoder{}, WithIdleInterval(testIdle))
	p.Start(nil)
	defer stopPump(test, p)

	p.Output([]byte("a"))
	p.Output(nil)
	p.Output([]byte("b"))

	if !waitFor(time.Second, func() bool { return t.sendCount() == 2 }) {
		test.Fatal("write count", t.sendCount())
	}
	if string(t.sentBytes()) != "ab" {
		test.Fatal("write order", string(t.sentBytes()))
	}
	if s := p.Statistics(); s.EncodeErrors != 1 {
		test.Fatal("statistics", s)
	}
	if p.Writer().Stopped() {
		test.Fatal("writer stopped on encode error")
	}
}

type panicDecoder struct{}

func (panicDecoder) Decode(p []byte) ([]byte, bool) {
	panic(errors.New("decoder broken"))
}

func TestPumpPanic(test *testing.T) {
	t := &mockTransport{}
	t.feed([]byte("x"))

	p := NewPump[[]byte](t, panicDecoder{}, Passthrough{}, WithIdleInterval(testIdle))
	var logged atomic.Int32
	p.SetPanicLogFunc(func(interface{}) { logged.Add(1) })
	p.Start(nil)
	defer stopPump(test, p)

	err := p.Reader().Wait(context.Background())
	if err == nil || err.Error() != "decoder broken" {
		test.Fatal("panic error", err)
	}
	if logged.Load() != 1 {
		test.Fatal("panic not logged")
	}
	if p.Writer().Stopped() {
		test.Fatal("writer stopped on reader panic")
	}
}

func TestPumpInboundClosed(test *testing.T) {
	t := &mockTransport{}
	p := newTestPump(t)
	defer stopPump(test, p)

	p.Inbound().Close()
	t.feed([]byte("x"))

	if err := p.Reader().Wait(context.Background()); err != ErrQueueClosed {
		test.Fatal("read error", err)
	}
}

func TestPumpServe(test *testing.T) {
	t := &mockTransport{}
	t.feed([]byte("a"), []byte("b"))
	p := newTestPump(t)
	defer stopPump(test, p)

	var (
		mu  sync.Mutex
		got []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	h := func(ctx context.Context, v []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(v))
		if len(got) == 2 {
			cancel()
		}
	}

	err := p.Serve(ctx, HandlerFunc[[]byte](h))
	if err != context.Canceled {
		test.Fatal("serve error", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		test.Fatal("serve order", got)
	}
}

func TestSpawn(test *testing.T) {
	t := &mockTransport{echo: true}

	p, err := Spawn[[]byte](context.Background(), Attach(t), Passthrough{}, Passthrough{}, WithIdleInterval(testIdle))
	if err != nil {
		test.Fatal("spawn", err)
	}
	defer stopPump(test, p)

	p.Output([]byte("ping"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if v, err := p.Input(ctx); err != nil || string(v) != "ping" {
		test.Fatal("spawn echo", v, err)
	}
}

func TestSpawnFactoryError(test *testing.T) {
	calls := 0
	f := FactoryFunc(func(ctx context.Context) (Transport, error) {
		calls++
		return nil, &ConnectError{Op: "test", Kind: ErrNotFound}
	})

	p, err := Spawn[[]byte](context.Background(), f, Passthrough{}, Passthrough{})
	if p != nil || !errors.Is(err, ErrNotFound) {
		test.Fatal("spawn error", err)
	}
	if calls != 1 {
		test.Fatal("factory calls", calls)
	}

	t := &mockTransport{closed: true}
	if _, err = Spawn[[]byte](context.Background(), Attach(t), Passthrough{}, Passthrough{}); !errors.Is(err, ErrNotConnected) {
		test.Fatal("attach error", err)
	}
}
