package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/indicatord/internal/intent"
)

// State is the worker's position in its Idle -> Rendering -> Idle cycle.
type State int32

// Worker states.
const (
	StateIdle State = iota
	StateRendering
)

func (s State) String() string {
	if s == StateRendering {
		return "rendering"
	}
	return "idle"
}

// Outcome reports how a render ended.
type Outcome uint8

// Render outcomes.
const (
	OutcomeCompleted Outcome = iota
	OutcomePreempted
	OutcomeFailed
	OutcomeCanceled
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomePreempted:
		return "preempted"
	case OutcomeFailed:
		return "failed"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	// Name labels logs and metrics, e.g. "light" or "sound".
	Name  string
	Queue *Queue
	Light intent.IndicatorSink
	Sound intent.AudioSink

	// Authority returns the arbiter's current intent. Nil disables
	// pre-emption by authority; queued intents of at least the same class
	// still interrupt continuous renders.
	Authority func() intent.Intent

	// Prelude renders once, uninterrupted, before the queue is drained.
	Prelude []intent.Intent
	// OnPreludeDone runs on the worker goroutine once the prelude has been
	// rendered, even when it is empty.
	OnPreludeDone func()

	// Gap is the silence between melody notes.
	Gap time.Duration
	// Interval is the dark separation inserted before a blink of the color
	// that is already lit.
	Interval time.Duration
	// Tick bounds how long a solid hold waits between pre-emption checks.
	Tick time.Duration

	OnRendered func(intent.Intent, Outcome)
	Logger     *slog.Logger
}

// Worker is the sole owner of one physical device.
type Worker struct {
	opts  WorkerOptions
	state atomic.Int32

	mu      sync.RWMutex
	current intent.Intent
	last    intent.Intent
	lit     intent.Color
}

// NewWorker creates a worker. Call Run to start rendering.
func NewWorker(opts WorkerOptions) *Worker {
	if opts.Queue == nil {
		opts.Queue = NewQueue(DefaultCapacity, DropOldest)
	}
	if opts.Gap <= 0 {
		opts.Gap = 10 * time.Millisecond
	}
	if opts.Tick <= 0 {
		opts.Tick = 50 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = "worker"
	}
	return &Worker{opts: opts}
}

// Name returns the worker's label.
func (w *Worker) Name() string { return w.opts.Name }

// State returns the current state.
func (w *Worker) State() State { return State(w.state.Load()) }

// Current returns the intent being rendered, if any.
func (w *Worker) Current() (intent.Intent, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current, w.State() == StateRendering
}

// transition is the only place the state changes.
func (w *Worker) transition(to State, in intent.Intent) {
	w.mu.Lock()
	if to == StateRendering {
		w.current = in
	} else {
		w.current = intent.Intent{}
	}
	w.mu.Unlock()

	from := State(w.state.Swap(int32(to)))
	if from != to {
		w.opts.Logger.Debug("Worker state changed", "worker", w.opts.Name, "from", from, "to", to, "intent", in.String())
	}
}

// Run renders the prelude, then drains the queue until ctx ends. After the
// queue runs dry it restores the authoritative intent if that intent is a
// standing one the device no longer shows.
func (w *Worker) Run(ctx context.Context) error {
	w.opts.Logger.Info("Render worker started", "worker", w.opts.Name)
	defer w.opts.Logger.Info("Render worker stopped", "worker", w.opts.Name)

	for _, in := range w.opts.Prelude {
		if w.render(ctx, in, false) == OutcomeCanceled {
			return ctx.Err()
		}
	}
	if w.opts.OnPreludeDone != nil {
		w.opts.OnPreludeDone()
	}

	for {
		if w.opts.Queue.Len() == 0 {
			if in, ok := w.resumable(); ok {
				if w.render(ctx, in, true) == OutcomeCanceled {
					return ctx.Err()
				}
				continue
			}
		}

		in, err := w.opts.Queue.Pop(ctx)
		if err != nil {
			w.darken()
			return err
		}
		if w.render(ctx, in, true) == OutcomeCanceled {
			w.darken()
			return ctx.Err()
		}
	}
}

// resumable returns the authoritative intent when it is continuous or an
// unlimited solid and differs from what was rendered last.
func (w *Worker) resumable() (intent.Intent, bool) {
	if w.opts.Authority == nil {
		return intent.Intent{}, false
	}
	auth := w.opts.Authority()
	if auth.IsSound() {
		return intent.Intent{}, false
	}
	standing := auth.Mode.Continuous() || (auth.Mode.Kind == intent.ModeSolid && auth.Mode.Hold == 0)
	if !standing {
		return intent.Intent{}, false
	}
	w.mu.RLock()
	last := w.last
	w.mu.RUnlock()
	if auth.Same(last) {
		return intent.Intent{}, false
	}
	return auth, true
}

func (w *Worker) render(ctx context.Context, in intent.Intent, preemptible bool) Outcome {
	if preemptible && w.preempted(in) {
		w.opts.Logger.Debug("Intent outdated before rendering", "worker", w.opts.Name, "intent", in.String())
		if w.opts.OnRendered != nil {
			w.opts.OnRendered(in, OutcomePreempted)
		}
		return OutcomePreempted
	}

	w.transition(StateRendering, in)

	var outcome Outcome
	var err error
	switch {
	case in.IsSound() && w.opts.Sound == nil, !in.IsSound() && w.opts.Light == nil:
		outcome = OutcomeSkipped
	case in.IsSound():
		outcome, err = w.playMelody(ctx, in, preemptible)
	case in.Mode.Kind == intent.ModeBlink:
		outcome, err = w.blink(ctx, in, preemptible)
	default:
		outcome, err = w.solid(ctx, in, preemptible)
	}

	if err != nil && outcome == OutcomeFailed {
		if errors.Is(err, intent.ErrDeviceNotReady) {
			w.opts.Logger.Warn("Device not ready, render dropped", "worker", w.opts.Name, "intent", in.String(), "error", err)
		} else {
			w.opts.Logger.Error("Render failed", "worker", w.opts.Name, "intent", in.String(), "error", err)
		}
	} else {
		w.opts.Logger.Debug("Render finished", "worker", w.opts.Name, "intent", in.String(), "outcome", outcome)
	}

	w.mu.Lock()
	w.last = in
	w.mu.Unlock()
	w.transition(StateIdle, in)

	if w.opts.OnRendered != nil {
		w.opts.OnRendered(in, outcome)
	}
	return outcome
}

// preempted is checked before an intent touches the device and at every
// toggle or note boundary. A continuous render yields to any change of
// authority or to a queued intent of at least its class; a finite render
// yields only to a newer authoritative intent of at least its class.
func (w *Worker) preempted(in intent.Intent) bool {
	if in.Mode.Continuous() {
		if top, ok := w.opts.Queue.Highest(); ok && top >= in.Class {
			return true
		}
	}
	if w.opts.Authority == nil {
		return false
	}
	auth := w.opts.Authority()
	if auth.Same(in) {
		return false
	}
	if in.Mode.Continuous() {
		return true
	}
	return auth.Class >= in.Class && auth.Seq > in.Seq
}

func (w *Worker) setColor(c intent.Color) error {
	if err := w.opts.Light.SetColor(c); err != nil {
		return fmt.Errorf("%s: set %s: %w", w.opts.Light.Name(), c, err)
	}
	w.mu.Lock()
	w.lit = c
	w.mu.Unlock()
	return nil
}

func (w *Worker) litColor() intent.Color {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lit
}

// darken switches the light off on shutdown, ignoring errors.
func (w *Worker) darken() {
	if w.opts.Light != nil {
		_ = w.setColor(intent.Black)
	}
	if w.opts.Sound != nil {
		_ = w.opts.Sound.Silence()
	}
}

func (w *Worker) solid(ctx context.Context, in intent.Intent, preemptible bool) (Outcome, error) {
	if err := w.setColor(in.Color); err != nil {
		return OutcomeFailed, err
	}
	if in.Mode.Hold <= 0 {
		return OutcomeCompleted, nil
	}

	preempted, err := w.hold(ctx, in, in.Mode.Hold, preemptible)
	if err != nil {
		return OutcomeCanceled, err
	}
	if preempted {
		return OutcomePreempted, nil
	}
	if err := w.setColor(intent.Black); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeCompleted, nil
}

func (w *Worker) blink(ctx context.Context, in intent.Intent, preemptible bool) (Outcome, error) {
	m := in.Mode

	if w.opts.Interval > 0 && in.Color != intent.Black && w.litColor() == in.Color {
		if err := w.setColor(intent.Black); err != nil {
			return OutcomeFailed, err
		}
		if err := sleep(ctx, w.opts.Interval); err != nil {
			return OutcomeCanceled, err
		}
	}

	for i := 0; m.Continuous() || i < m.Count; i++ {
		if preemptible && i > 0 && w.preempted(in) {
			return OutcomePreempted, nil
		}
		if err := w.setColor(in.Color); err != nil {
			return OutcomeFailed, err
		}
		preempted, err := w.hold(ctx, in, m.On, preemptible)
		if err != nil {
			return OutcomeCanceled, err
		}
		if err := w.setColor(intent.Black); err != nil {
			return OutcomeFailed, err
		}
		if preempted || preemptible && w.preempted(in) {
			return OutcomePreempted, nil
		}
		if err := sleep(ctx, m.Off); err != nil {
			return OutcomeCanceled, err
		}
	}
	return OutcomeCompleted, nil
}

// hold waits d, checking for pre-emption every tick.
func (w *Worker) hold(ctx context.Context, in intent.Intent, d time.Duration, preemptible bool) (bool, error) {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		if err := sleep(ctx, min(remaining, w.opts.Tick)); err != nil {
			return false, err
		}
		if preemptible && w.preempted(in) {
			return true, nil
		}
	}
}

func (w *Worker) playMelody(ctx context.Context, in intent.Intent, preemptible bool) (Outcome, error) {
	snd := w.opts.Sound
	defer func() { _ = snd.Silence() }()

	for i, note := range in.Melody {
		if preemptible && i > 0 && w.preempted(in) {
			return OutcomePreempted, nil
		}
		var err error
		if note.Tone.Silent() {
			err = snd.Silence()
		} else {
			err = snd.PlayTone(note.Tone)
		}
		if err != nil {
			return OutcomeFailed, fmt.Errorf("%s: play %s: %w", snd.Name(), note.Tone, err)
		}
		if err := sleep(ctx, note.Duration); err != nil {
			return OutcomeCanceled, err
		}
		if err := snd.Silence(); err != nil {
			return OutcomeFailed, fmt.Errorf("%s: silence: %w", snd.Name(), err)
		}
		if err := sleep(ctx, w.opts.Gap); err != nil {
			return OutcomeCanceled, err
		}
	}
	return OutcomeCompleted, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
