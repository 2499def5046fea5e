package led

import (
	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/logging"
)

// noop implements intent.IndicatorSink for systems without indicator support
type noop struct {
	logger logging.Logger
}

func newNoop(logger logging.Logger) *noop {
	return &noop{logger: logger}
}

// Name identifies the sink in logs.
func (n *noop) Name() string { return "noop" }

// SetColor logs the request but drives nothing
func (n *noop) SetColor(c intent.Color) error {
	n.logger.Debug("Indicator control not available (no-op)", "color", c)
	return nil
}
