package composition

import (
	"fmt"
	"image"
	"sync"

	"github.com/framewise/composure/internal/detect"
	"github.com/framewise/composure/internal/geometry"
)

// Manager orchestrates rule selection and evaluation.
//
// A Manager is an explicitly constructed instance owned by the surrounding
// application; there is no package-level shared manager. All mutation
// funnels through its methods (single writer); readers get snapshot copies,
// so no locking discipline beyond the internal RWMutex is needed.
type Manager struct {
	mu      sync.RWMutex
	rule    Rule
	enabled bool
	tuning  Tuning
	last    *Result
}

// NewManager creates a Manager starting on the rule of thirds, enabled.
func NewManager(tun Tuning) *Manager {
	return &Manager{
		rule:    RuleOfThirds,
		enabled: true,
		tuning:  tun,
	}
}

// CurrentRule returns the active composition rule.
func (m *Manager) CurrentRule() Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rule
}

// SwitchTo atomically changes the active rule. The next Evaluate call uses
// the new rule; the last stored result is not rescored.
func (m *Manager) SwitchTo(rule Rule) {
	m.mu.Lock()
	m.rule = rule
	m.mu.Unlock()
}

// Enabled reports whether evaluation is active.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// SetEnabled toggles evaluation. While disabled, Evaluate returns neutral
// basic-overlay results with no suggestion text.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	m.enabled = enabled
	m.mu.Unlock()
}

// LastResult returns a copy of the most recent evaluation result, or false
// if nothing has been evaluated yet. Only the most recent result is ever
// retained; results are overwritten, never queued.
func (m *Manager) LastResult() (Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return Result{}, false
	}
	return *m.last, true
}

// Evaluate scores the observation with the active rule and stores the
// result as the manager's last result.
//
// Invalid frame geometry is the only error; the caller treats it as "skip
// this frame". While the manager is disabled the result is neutral: basic
// overlays only, no suggestion.
func (m *Manager) Evaluate(obs detect.Observation, frame geometry.Size, px image.Image) (*Result, error) {
	m.mu.RLock()
	rule := m.rule
	enabled := m.enabled
	tun := m.tuning
	m.mu.RUnlock()

	if !frame.Valid() {
		return nil, invalidFrameError(frame)
	}

	var result *Result
	if !enabled {
		result = neutralResult(rule, Analyze(obs, frame))
	} else {
		var err error
		result, err = Evaluate(rule, obs, frame, px, tun)
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.last = result
	m.mu.Unlock()

	return result, nil
}

// BestSuggestion evaluates every rule against the observation and returns
// the highest-scoring result. Ties are broken by fixed priority:
// RuleOfThirds > RuleCenterFraming > RuleSymmetry, never by score noise.
// The returned result is not stored as the manager's last result.
func (m *Manager) BestSuggestion(obs detect.Observation, frame geometry.Size, px image.Image) (*Result, error) {
	m.mu.RLock()
	tun := m.tuning
	m.mu.RUnlock()

	if !frame.Valid() {
		return nil, invalidFrameError(frame)
	}

	var best *Result
	for _, rule := range Rules {
		result, err := Evaluate(rule, obs, frame, px, tun)
		if err != nil {
			return nil, err
		}
		// Strictly greater keeps the earlier (higher-priority) rule on ties.
		if best == nil || result.Score > best.Score {
			best = result
		}
	}
	return best, nil
}

func invalidFrameError(frame geometry.Size) error {
	return fmt.Errorf("composition: invalid frame size %dx%d", frame.Width, frame.Height)
}
