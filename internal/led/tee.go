package led

import (
	"errors"
	"strings"

	"github.com/smazurov/indicatord/internal/intent"
)

type tee []intent.IndicatorSink

// Tee drives several sinks with the same colors. Every sink is written even
// when an earlier one fails.
func Tee(sinks ...intent.IndicatorSink) intent.IndicatorSink {
	return tee(sinks)
}

func (t tee) Name() string {
	names := make([]string, len(t))
	for i, s := range t {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func (t tee) SetColor(c intent.Color) error {
	var errs []error
	for _, s := range t {
		if err := s.SetColor(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink holding resources.
func (t tee) Close() error {
	var errs []error
	for _, s := range t {
		if c, ok := s.(intent.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
