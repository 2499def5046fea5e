package buzzer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/smazurov/indicatord/internal/intent"
)

// DefaultSampleRate is used when none is configured.
const DefaultSampleRate = 22050

const (
	bitDepth  = 16
	pcmFormat = 1
	peak      = 0x3FFF
)

// synth renders square waves into 16-bit mono samples, keeping the phase
// continuous across calls.
type synth struct {
	rate    int
	phase   float64
	samples []int
}

func (s *synth) add(t intent.Tone, d time.Duration) {
	n := int(d.Seconds() * float64(s.rate))
	if t.Silent() {
		s.samples = append(s.samples, make([]int, n)...)
		s.phase = 0
		return
	}
	step := t.FrequencyHz / float64(s.rate)
	dutyCycle := min(max(t.Amplitude, 0), 1)
	for range n {
		v := -peak
		if s.phase < dutyCycle {
			v = peak
		}
		s.samples = append(s.samples, v)
		_, s.phase = math.Modf(s.phase + step)
	}
}

func (s *synth) encode(w io.WriteSeeker) error {
	enc := wav.NewEncoder(w, s.rate, bitDepth, 1, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: s.rate},
		Data:           s.samples,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	return nil
}

// WriteMelody synthesizes notes separated by gap into a WAV stream.
func WriteMelody(w io.WriteSeeker, notes []intent.Note, gap time.Duration, sampleRate int) error {
	if len(notes) == 0 {
		return errors.New("empty melody")
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	s := &synth{rate: sampleRate}
	for _, n := range notes {
		s.add(n.Tone, n.Duration)
		s.add(intent.Tone{}, gap)
	}
	return s.encode(w)
}

// Recorder is an audio sink that captures whatever the render worker plays,
// in real time, and writes it as a WAV file on Close.
type Recorder struct {
	mu    sync.Mutex
	path  string
	now   func() time.Time
	synth synth
	cur   intent.Tone
	since time.Time
	done  bool
}

// NewRecorder prepares a recording to path.
func NewRecorder(path string, sampleRate int) (*Recorder, error) {
	if path == "" {
		return nil, errors.New("wav recorder: path required")
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("wav recorder: %w", err)
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	r := &Recorder{
		path:  path,
		now:   time.Now,
		synth: synth{rate: sampleRate},
	}
	r.since = r.now()
	return r, nil
}

func (r *Recorder) Name() string { return "wav" }

// PlayTone ends the current segment and starts t.
func (r *Recorder) PlayTone(t intent.Tone) error {
	return r.switchTo(t)
}

// Silence ends the current segment and starts a silent one.
func (r *Recorder) Silence() error {
	return r.switchTo(intent.Tone{})
}

func (r *Recorder) switchTo(t intent.Tone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return fmt.Errorf("wav recorder closed: %w", intent.ErrDeviceNotReady)
	}
	r.flush()
	r.cur = t
	return nil
}

func (r *Recorder) flush() {
	now := r.now()
	r.synth.add(r.cur, now.Sub(r.since))
	r.since = now
}

// Close writes the recording. Further tones fail with ErrDeviceNotReady.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil
	}
	r.done = true
	r.flush()

	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("wav recorder: %w", err)
	}
	if err := r.synth.encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
