package intent

import (
	"testing"
	"time"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		name    string
		want    Color
		wantErr bool
	}{
		{"white", White, false},
		{" Red ", Red, false},
		{"off", Black, false},
		{"orange", Yellow, false},
		{"purple", Magenta, false},
		{"cyan", Cyan, false},
		{"chartreuse", Black, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColor(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestColorChannels(t *testing.T) {
	if got := Magenta.Channels(); got != [3]bool{true, false, true} {
		t.Errorf("Magenta.Channels() = %v", got)
	}
	if got := Black.Channels(); got != [3]bool{} {
		t.Errorf("Black.Channels() = %v", got)
	}
	if Color(9).Valid() {
		t.Error("Color(9) should not be valid")
	}
}

func TestClassOrder(t *testing.T) {
	classes := Classes()
	for i := 1; i < len(classes); i++ {
		if classes[i-1] <= classes[i] {
			t.Errorf("%s should outrank %s", classes[i-1], classes[i])
		}
	}
}

func TestIntentSame(t *testing.T) {
	a := Intent{Class: ClassLink, Color: Green, Mode: Blink(1, 100*time.Millisecond, 0), Reason: "connected", Seq: 1}
	b := a
	b.Seq = 7
	if !a.Same(b) {
		t.Error("intents differing only by Seq should be the same")
	}

	b.Color = Blue
	if a.Same(b) {
		t.Error("intents with different colors should differ")
	}

	m1 := Intent{Melody: []Note{N(C5, 100)}}
	m2 := Intent{Melody: []Note{N(C5, 100), N(E5, 100)}}
	if m1.Same(m2) {
		t.Error("melodies of different length should differ")
	}
}

func TestIntentDegraded(t *testing.T) {
	in := Intent{
		Class:  ClassLink,
		Color:  Blue,
		Mode:   Blink(3, 400*time.Millisecond, 200*time.Millisecond),
		Reason: "advertising",
	}
	d := in.Degraded()

	if d.Mode.Count != 1 {
		t.Errorf("degraded count = %d, want 1", d.Mode.Count)
	}
	if d.Mode.On != 200*time.Millisecond || d.Mode.Off != 100*time.Millisecond {
		t.Errorf("degraded phases = %s/%s", d.Mode.On, d.Mode.Off)
	}
	if in.Mode.Count != 3 {
		t.Error("Degraded must not modify the receiver")
	}

	song := Intent{Melody: []Note{N(C5, 120), N(G5, 80)}}
	ds := song.Degraded()
	if ds.Melody[0].Duration != 60*time.Millisecond || ds.Melody[1].Duration != 40*time.Millisecond {
		t.Errorf("degraded melody = %v", ds.Melody)
	}
	if song.Melody[0].Duration != 120*time.Millisecond {
		t.Error("Degraded must copy the melody")
	}
}

func TestIntentDuration(t *testing.T) {
	blink := Intent{Mode: Blink(2, 100*time.Millisecond, 50*time.Millisecond)}
	if got := blink.Duration(0); got != 300*time.Millisecond {
		t.Errorf("blink duration = %s", got)
	}

	forever := Intent{Mode: BlinkForever(100*time.Millisecond, 100*time.Millisecond)}
	if got := forever.Duration(0); got != 0 {
		t.Errorf("continuous duration = %s, want 0", got)
	}

	song := Intent{Melody: []Note{N(C5, 100), N(E5, 100)}}
	if got := song.Duration(10 * time.Millisecond); got != 220*time.Millisecond {
		t.Errorf("melody duration = %s", got)
	}
}
