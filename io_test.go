package commpump

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// mockTransport returns queued chunks from Recv and records Send.
type mockTransport struct {
	mu sync.Mutex

	// recv chunks, rerr is returned once they are exhausted
	chunks [][]byte
	rerr   error

	// send
	sent  bytes.Buffer
	sends [][]byte
	wcnt  int
	wmax  int
	werr  error
	echo  bool

	closed bool
}

func (t *mockTransport) feed(chunks ...[]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chunks = append(t.chunks, chunks...)
}

func (t *mockTransport) Recv() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.chunks) > 0 {
		c := t.chunks[0]
		t.chunks = t.chunks[1:]
		return c, nil
	}
	if t.rerr != nil {
		return nil, t.rerr
	}
	return nil, nil
}

func (t *mockTransport) Send(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.wmax > 0 && t.wcnt >= t.wmax {
		if t.werr != nil {
			return t.werr
		}
		return io.ErrClosedPipe
	}

	t.wcnt++
	t.sent.Write(p)
	t.sends = append(t.sends, append([]byte(nil), p...))
	if t.echo {
		t.chunks = append(t.chunks, append([]byte(nil), p...))
	}
	return nil
}

func (t *mockTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

func (t *mockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *mockTransport) sentBytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.sent.Bytes()...)
}

func (t *mockTransport) sendCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wcnt
}

func (t *mockTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// waitFor polls cond until it holds or d passed.
func waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
