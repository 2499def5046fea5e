// Package systemd reports service state to the service manager through the
// sd_notify protocol. Every call is a no-op when not started by systemd.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends READY, STATUS, WATCHDOG and STOPPING notifications.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

func (n *Notifier) notify(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return false
	}
	return sent
}

// Ready tells systemd startup has finished.
func (n *Notifier) Ready() bool {
	sent := n.notify(daemon.SdNotifyReady)
	if sent {
		n.logger.Debug("Notified systemd ready")
	}
	return sent
}

// Stopping tells systemd shutdown has begun.
func (n *Notifier) Stopping() bool {
	return n.notify(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(msg string) bool {
	return n.notify("STATUS=" + msg)
}

// Watchdog pings the watchdog at half the configured interval until ctx is
// done. It returns immediately when the unit has no WatchdogSec.
func (n *Notifier) Watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Invalid watchdog configuration", "error", err)
		return
	}
	if interval <= 0 {
		return
	}

	n.logger.Info("Systemd watchdog enabled", "interval", interval)
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.notify(daemon.SdNotifyWatchdog)
		}
	}
}
