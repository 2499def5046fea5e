package intent

// IndicatorSink drives a tri-color indicator. SetColor is the only write
// path to the physical light; the render worker is its sole caller.
type IndicatorSink interface {
	SetColor(c Color) error
	Name() string
}

// AudioSink drives a tone generator.
type AudioSink interface {
	PlayTone(t Tone) error
	Silence() error
	Name() string
}

// Closer is implemented by sinks holding OS or network resources.
type Closer interface {
	Close() error
}
