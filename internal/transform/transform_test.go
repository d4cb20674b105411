package transform

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Araneidae/fa-archiver/internal/ringbuffer"
)

// recordingTransformer is a minimal Transformer used to exercise Run: it
// records every block handed to
// it (nil entries included, to capture gap/resync markers) without
// interpreting their contents.
type recordingTransformer struct {
	mu     sync.Mutex
	blocks [][]byte
}

func (r *recordingTransformer) ProcessBlock(block []byte, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if block == nil {
		r.blocks = append(r.blocks, nil)
		return nil
	}
	cp := make([]byte, len(block))
	copy(cp, block)
	r.blocks = append(r.blocks, cp)
	return nil
}

func (r *recordingTransformer) snapshot() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.blocks))
	copy(out, r.blocks)
	return out
}

func TestRunDeliversBlocksInOrder(t *testing.T) {
	const blockSize = 8
	buf, err := ringbuffer.NewBuffer(blockSize, 8, blockSize)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	defer buf.Close()

	reader := buf.OpenReader(true)
	defer buf.CloseReader(reader)

	rec := &recordingTransformer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, reader, rec) }()

	now := time.Unix(9000, 0)
	for i := 0; i < 4; i++ {
		wb := buf.GetWriteBlock()
		for j := range wb {
			wb[j] = byte(i + 1)
		}
		buf.ReleaseWriteBlock(false, now.Add(time.Duration(i)*time.Millisecond))
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.snapshot()) < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	cancel()
	reader.Stop()
	<-done

	got := rec.snapshot()
	if len(got) < 4 {
		t.Fatalf("got %d blocks, want at least 4", len(got))
	}
	for i := 0; i < 4; i++ {
		if got[i] == nil || got[i][0] != byte(i+1) {
			t.Errorf("block %d = %v, want first byte %d", i, got[i], i+1)
		}
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	const blockSize = 8
	buf, err := ringbuffer.NewBuffer(blockSize, 4, blockSize)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	defer buf.Close()

	reader := buf.OpenReader(false)
	defer buf.CloseReader(reader)

	rec := &recordingTransformer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, reader, rec) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	reader.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error on cooperative shutdown: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRunPropagatesTransformerError(t *testing.T) {
	const blockSize = 8
	buf, err := ringbuffer.NewBuffer(blockSize, 4, blockSize)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	defer buf.Close()

	reader := buf.OpenReader(true)
	defer buf.CloseReader(reader)

	failing := &failingTransformer{failAfter: 0}
	ctx := context.Background()

	wb := buf.GetWriteBlock()
	for j := range wb {
		wb[j] = 1
	}
	buf.ReleaseWriteBlock(false, time.Unix(9100, 0))

	err = Run(ctx, reader, failing)
	if err == nil {
		t.Fatal("expected Run to propagate the transformer's error")
	}
}

type failingTransformer struct {
	calls     int
	failAfter int
}

func (f *failingTransformer) ProcessBlock(block []byte, ts time.Time) error {
	f.calls++
	if f.calls > f.failAfter {
		return errTransformFailed
	}
	return nil
}

var errTransformFailed = &transformError{"transform failed"}

type transformError struct{ msg string }

func (e *transformError) Error() string { return e.msg }
