package intent

import (
	"fmt"
	"time"
)

// Tone describes one output of the tone generator.
type Tone struct {
	FrequencyHz float64 `json:"frequency_hz"`
	Amplitude   float64 `json:"amplitude"` // 0..1, PWM duty for buzzers
}

// Silent reports whether the tone produces no sound.
func (t Tone) Silent() bool { return t.FrequencyHz <= 0 || t.Amplitude <= 0 }

// Period returns the PWM period of the tone, zero for silence.
func (t Tone) Period() time.Duration {
	if t.FrequencyHz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / t.FrequencyHz)
}

func (t Tone) String() string {
	if t.Silent() {
		return "silence"
	}
	return fmt.Sprintf("%.2fHz", t.FrequencyHz)
}

// Note is a tone held for a duration.
type Note struct {
	Tone     Tone          `json:"tone"`
	Duration time.Duration `json:"duration"`
}

// DefaultAmplitude is a 50% duty cycle, the loudest square wave on a piezo.
const DefaultAmplitude = 0.5

// Pitches used by the built-in melodies.
var (
	C5  = Tone{FrequencyHz: 523.25, Amplitude: DefaultAmplitude}
	D5  = Tone{FrequencyHz: 587.33, Amplitude: DefaultAmplitude}
	E5  = Tone{FrequencyHz: 659.25, Amplitude: DefaultAmplitude}
	F5  = Tone{FrequencyHz: 698.46, Amplitude: DefaultAmplitude}
	FS5 = Tone{FrequencyHz: 739.99, Amplitude: DefaultAmplitude}
	G5  = Tone{FrequencyHz: 783.99, Amplitude: DefaultAmplitude}
	GS5 = Tone{FrequencyHz: 830.61, Amplitude: DefaultAmplitude}
	A5  = Tone{FrequencyHz: 880.00, Amplitude: DefaultAmplitude}
	B5  = Tone{FrequencyHz: 987.77, Amplitude: DefaultAmplitude}
	C6  = Tone{FrequencyHz: 1046.50, Amplitude: DefaultAmplitude}
)

// N builds a note of the given pitch lasting ms milliseconds.
func N(t Tone, ms int) Note {
	return Note{Tone: t, Duration: time.Duration(ms) * time.Millisecond}
}

func (n Note) String() string {
	return fmt.Sprintf("%s/%s", n.Tone, n.Duration)
}
