package pipeline

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/framewise/composure/internal/composition"
	"github.com/framewise/composure/internal/detect"
)

func grayFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	return img
}

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	det := detect.New(detect.DefaultConfig())
	mgr := composition.NewManager(composition.DefaultTuning())
	return New(det, mgr, cfg)
}

// waitConsumed blocks until the evaluator has taken the pending candidate
// out of the mailbox.
func waitConsumed(t *testing.T, p *Pipeline) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		empty := p.pending == nil
		p.mu.Unlock()
		if empty {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("evaluator never consumed the pending frame")
}

func TestStartTwiceFails(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer p.Stop()

	if err := p.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}
}

func TestStopIdempotent(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Stop()
	p.Stop() // must not panic or hang

	// Submit after Stop is a no-op.
	p.Submit(grayFrame(64, 64))
	if _, ok := p.Last(); ok {
		t.Fatal("no evaluation should be published after Stop")
	}
}

func TestAnalyzeEveryThird(t *testing.T) {
	cfg := Config{AnalyzeEvery: 3, WarmupDelay: 0, Budget: time.Second}
	p := newTestPipeline(t, cfg)

	published := make(chan Evaluation, 16)
	p.Subscribe(func(e Evaluation) { published <- e })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	frame := grayFrame(64, 64)
	for i := 0; i < 6; i++ {
		p.Submit(frame)
		waitConsumed(t, p)
	}

	var seqs []uint64
	timeout := time.After(2 * time.Second)
	for len(seqs) < 2 {
		select {
		case e := <-published:
			seqs = append(seqs, e.Seq)
		case <-timeout:
			t.Fatalf("expected 2 published evaluations, got %v", seqs)
		}
	}

	if seqs[0] != 3 || seqs[1] != 6 {
		t.Fatalf("published seqs = %v, want [3 6]", seqs)
	}
	select {
	case e := <-published:
		t.Fatalf("unexpected extra evaluation for seq %d", e.Seq)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWarmupDropsEarlyFrames(t *testing.T) {
	cfg := Config{AnalyzeEvery: 1, WarmupDelay: 150 * time.Millisecond, Budget: time.Second}
	p := newTestPipeline(t, cfg)

	published := make(chan Evaluation, 16)
	p.Subscribe(func(e Evaluation) { published <- e })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	frame := grayFrame(64, 64)
	p.Submit(frame)
	p.Submit(frame)

	select {
	case e := <-published:
		t.Fatalf("frame %d published during warm-up", e.Seq)
	case <-time.After(50 * time.Millisecond):
	}

	time.Sleep(150 * time.Millisecond)
	p.Submit(frame)
	waitConsumed(t, p)

	select {
	case e := <-published:
		if e.Seq != 3 {
			t.Fatalf("published seq = %d, want 3", e.Seq)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no evaluation published after warm-up")
	}
}

func TestMailboxOverwrite(t *testing.T) {
	cfg := Config{AnalyzeEvery: 1, WarmupDelay: 0, Budget: time.Second}
	p := newTestPipeline(t, cfg)

	// Unbuffered: the evaluator blocks in the observer until the test
	// reads, pinning it while further frames pile into the mailbox.
	published := make(chan Evaluation)
	p.Subscribe(func(e Evaluation) { published <- e })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	frame := grayFrame(64, 64)
	p.Submit(frame)
	waitConsumed(t, p) // evaluator now holds frame 1

	// Frames 2 and 3 arrive while the evaluator is busy: 3 overwrites 2.
	p.Submit(frame)
	p.Submit(frame)

	first := <-published
	if first.Seq != 1 {
		t.Fatalf("first published seq = %d, want 1", first.Seq)
	}
	second := <-published
	if second.Seq != 3 {
		t.Fatalf("second published seq = %d, want 3 (frame 2 overwritten)", second.Seq)
	}
}

func TestPublishLastWriterWins(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())

	var seen []uint64
	p.Subscribe(func(e Evaluation) { seen = append(seen, e.Seq) })

	newer := Evaluation{Seq: 2, Result: &composition.Result{}}
	older := Evaluation{Seq: 1, Result: &composition.Result{}}

	// Completions arrive out of order: the newer frame finishes first.
	p.publish(newer)
	p.publish(older)

	last, ok := p.Last()
	if !ok {
		t.Fatal("no evaluation published")
	}
	if last.Seq != 2 {
		t.Fatalf("last published seq = %d, want 2", last.Seq)
	}
	if len(seen) != 1 || seen[0] != 2 {
		t.Fatalf("observed seqs = %v, want [2]", seen)
	}
}

func TestPublishInOrder(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())

	p.publish(Evaluation{Seq: 1, Result: &composition.Result{}})
	p.publish(Evaluation{Seq: 2, Result: &composition.Result{}})

	last, ok := p.Last()
	if !ok || last.Seq != 2 {
		t.Fatalf("last published seq = %d (ok=%v), want 2", last.Seq, ok)
	}
}

func TestLastSnapshot(t *testing.T) {
	cfg := Config{AnalyzeEvery: 1, WarmupDelay: 0, Budget: time.Second}
	p := newTestPipeline(t, cfg)

	done := make(chan struct{})
	p.Subscribe(func(Evaluation) { close(done) })

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	if _, ok := p.Last(); ok {
		t.Fatal("Last should report nothing before first evaluation")
	}

	p.Submit(grayFrame(64, 64))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("evaluation never completed")
	}

	last, ok := p.Last()
	if !ok {
		t.Fatal("Last should report the published evaluation")
	}
	if last.Seq != 1 {
		t.Fatalf("last seq = %d, want 1", last.Seq)
	}
	if last.Result == nil {
		t.Fatal("published evaluation carries no result")
	}
}
