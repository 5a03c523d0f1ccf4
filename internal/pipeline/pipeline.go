// Package pipeline schedules detection and composition evaluation over a
// live frame feed.
//
// The pipeline owns the scheduling contract of the engine: frames arrive at
// camera rate via Submit, but only every third frame becomes an analysis
// candidate, and none before a warm-up delay has passed since Start (sensor
// stabilization produces garbage frames). Candidates land in a single-slot
// mailbox with overwrite semantics: if the evaluator is still busy when the
// next candidate arrives, the old candidate is dropped, never queued.
//
// # Ordering
//
// Published results are last-writer-wins. Every submitted frame carries a
// monotonically increasing sequence number; a completed evaluation publishes
// only if no later evaluation has already published. Stale results are
// discarded on completion: a data-discard policy, not a cancellation signal
// into the evaluation itself.
//
// # Threads
//
// Detection and scoring run on one background goroutine owned by the
// pipeline. Submit never blocks on evaluation. Observers are invoked from
// the evaluator goroutine and must return quickly; the UI-side reader can
// instead poll Last for a snapshot.
package pipeline

import (
	"context"
	"errors"
	"image"
	"log"
	"sync"
	"time"

	"github.com/framewise/composure/internal/composition"
	"github.com/framewise/composure/internal/detect"
	"github.com/framewise/composure/internal/geometry"
	"github.com/framewise/composure/internal/overlay"
)

// Evaluation is one published pipeline outcome: the frame's observation,
// composition result, and overlay elements, plus timing for budget checks.
type Evaluation struct {
	// Seq is the sequence number of the evaluated frame.
	Seq uint64 `json:"seq"`

	// Observation is the subject found in the frame (possibly none).
	Observation detect.Observation `json:"observation"`

	// Result is the composition score for the active rule.
	Result *composition.Result `json:"result"`

	// Overlays are the drawable elements derived from Result.
	Overlays []overlay.Element `json:"overlays"`

	// Elapsed is the end-to-end evaluation time (detect + context + score
	// + overlay mapping).
	Elapsed time.Duration `json:"elapsedNs"`
}

// Observer receives published evaluations. Observers run on the evaluator
// goroutine; slow observers stall publication, not frame submission.
type Observer func(Evaluation)

// Config holds the scheduling parameters.
type Config struct {
	// AnalyzeEvery is the frame-thinning factor: one candidate per N
	// submitted frames.
	AnalyzeEvery int

	// WarmupDelay is how long after Start submissions are ignored.
	WarmupDelay time.Duration

	// Budget is the soft per-evaluation deadline. Exceeding it is logged,
	// never enforced.
	Budget time.Duration
}

// DefaultConfig returns the standard scheduling contract: every third
// frame, one second of warm-up, 50 ms soft budget.
func DefaultConfig() Config {
	return Config{
		AnalyzeEvery: 3,
		WarmupDelay:  time.Second,
		Budget:       50 * time.Millisecond,
	}
}

// candidate is one frame admitted for analysis.
type candidate struct {
	seq uint64
	img image.Image
}

// Pipeline wires the detector and manager to a frame feed.
type Pipeline struct {
	cfg Config
	det *detect.Detector
	mgr *composition.Manager

	mu        sync.Mutex
	cond      *sync.Cond
	pending   *candidate // single-slot mailbox; nil = consumed
	submitSeq uint64
	started   bool
	startedAt time.Time

	lastSeq   uint64 // sequence of the last published evaluation
	last      *Evaluation
	observers []Observer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Pipeline. The detector and manager are owned by the caller
// and must outlive the pipeline.
func New(det *detect.Detector, mgr *composition.Manager, cfg Config) *Pipeline {
	if cfg.AnalyzeEvery < 1 {
		cfg.AnalyzeEvery = 1
	}
	p := &Pipeline{cfg: cfg, det: det, mgr: mgr}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Subscribe registers an observer for published evaluations. Must be called
// before Start.
func (p *Pipeline) Subscribe(obs Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, obs)
}

// Start launches the evaluator goroutine. Calling Start twice is an error.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("pipeline already started")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true
	p.startedAt = time.Now()

	p.wg.Add(1)
	go p.evalLoop()

	return nil
}

// Stop shuts down the evaluator and waits for it to exit. Idempotent.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	p.cancel()
	p.cond.Broadcast()
	p.wg.Wait()
}

// Submit offers a camera frame to the pipeline. It never blocks on
// evaluation: frames outside the analysis cadence (or during warm-up) are
// counted and dropped, and an unconsumed older candidate is overwritten.
func (p *Pipeline) Submit(img image.Image) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.submitSeq++
	seq := p.submitSeq

	if seq%uint64(p.cfg.AnalyzeEvery) != 0 {
		return
	}
	if time.Since(p.startedAt) < p.cfg.WarmupDelay {
		return
	}

	p.pending = &candidate{seq: seq, img: img}
	p.cond.Signal()
}

// Last returns a copy of the most recently published evaluation.
func (p *Pipeline) Last() (Evaluation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Evaluation{}, false
	}
	return *p.last, true
}

// evalLoop consumes candidates from the mailbox until shutdown.
func (p *Pipeline) evalLoop() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for p.pending == nil {
			if p.ctx.Err() != nil {
				p.mu.Unlock()
				return
			}
			p.cond.Wait()
			if p.ctx.Err() != nil {
				p.mu.Unlock()
				return
			}
		}
		c := p.pending
		p.pending = nil
		p.mu.Unlock()

		eval, ok := p.evaluate(c)
		if !ok {
			continue
		}
		p.publish(eval)
	}
}

// evaluate runs one full cycle: detect, score, map overlays. Returns false
// when the frame must be skipped (invalid geometry).
func (p *Pipeline) evaluate(c *candidate) (Evaluation, bool) {
	start := time.Now()

	obs := p.det.Detect(c.img)
	frame := geometry.SizeOf(c.img)

	result, err := p.mgr.Evaluate(obs, frame, c.img)
	if err != nil {
		log.Printf("pipeline: skipping frame %d: %v", c.seq, err)
		return Evaluation{}, false
	}

	elements := overlay.Generate(result)

	elapsed := time.Since(start)
	if elapsed > p.cfg.Budget {
		log.Printf("pipeline: frame %d evaluation took %v (budget %v)", c.seq, elapsed, p.cfg.Budget)
	}

	return Evaluation{
		Seq:         c.seq,
		Observation: obs,
		Result:      result,
		Overlays:    elements,
		Elapsed:     elapsed,
	}, true
}

// publish records and fans out an evaluation unless a newer one has already
// been published. Stale evaluations are discarded silently: only the most
// recent frame's feedback is meaningful to the user.
func (p *Pipeline) publish(eval Evaluation) {
	p.mu.Lock()
	if eval.Seq <= p.lastSeq && p.last != nil {
		p.mu.Unlock()
		return
	}
	p.lastSeq = eval.Seq
	copied := eval
	p.last = &copied
	observers := p.observers
	p.mu.Unlock()

	for _, obs := range observers {
		obs(eval)
	}
}
