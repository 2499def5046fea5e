package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/indicatord/internal/arbiter"
	"github.com/smazurov/indicatord/internal/events"
	"github.com/smazurov/indicatord/internal/logging"
	"github.com/smazurov/indicatord/internal/nats"
	"github.com/smazurov/indicatord/internal/signals"
)

const defaultNATSURL = "nats://127.0.0.1:4222"

// CreateSignalCmd creates the signal command, which feeds a running daemon
// over NATS.
func CreateSignalCmd() *cobra.Command {
	var natsURL string

	// connect opens a client, runs publish and flushes before closing.
	connect := func(publish func(*nats.Client) error) error {
		client := nats.NewClient(natsURL, "indicatord-signal", logging.GetLogger("nats"))
		if err := client.Connect(); err != nil {
			return fmt.Errorf("connect %s: %w", natsURL, err)
		}
		defer client.Close()

		if err := publish(client); err != nil {
			return err
		}
		return client.Flush(2 * time.Second)
	}

	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Send signals to a running indicatord",
		Long:  `Publishes battery, link, caps lock, boot and endpoint signals, and one-shot indication requests, to a running daemon over NATS.`,
	}
	cmd.PersistentFlags().StringVar(&natsURL, "nats-url", defaultNATSURL, "NATS server the daemon listens on")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "battery <percent|unknown>",
			Short: "Report the state of charge",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				percent := -1
				if args[0] != "unknown" {
					p, err := strconv.Atoi(args[0])
					if err != nil || p < 0 || p > 100 {
						return fmt.Errorf("battery: %q is not a percentage", args[0])
					}
					percent = p
				}
				return connect(func(c *nats.Client) error { return c.Battery(percent) })
			},
		},
		linkCmd(connect),
		&cobra.Command{
			Use:   "capslock <on|off|0xFLAGS>",
			Short: "Report the host caps lock state",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				flags, err := parseCapsLock(args[0])
				if err != nil {
					return err
				}
				return connect(func(c *nats.Client) error { return c.CapsLock(flags) })
			},
		},
		&cobra.Command{
			Use:   "boot",
			Short: "Mark startup complete",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return connect(func(c *nats.Client) error { return c.Boot() })
			},
		},
		&cobra.Command{
			Use:       "endpoint <usb|ble|none>",
			Short:     "Report the active output transport",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"usb", "ble", "none"},
			RunE: func(_ *cobra.Command, args []string) error {
				if _, err := signals.ParseTransport(args[0]); err != nil {
					return err
				}
				return connect(func(c *nats.Client) error { return c.Endpoint(args[0]) })
			},
		},
		&cobra.Command{
			Use:       "indicate <battery|connectivity|profile>",
			Short:     "Request a one-shot indication",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"battery", "connectivity", "profile"},
			RunE: func(_ *cobra.Command, args []string) error {
				if _, err := arbiter.ParseIndicateKind(args[0]); err != nil {
					return err
				}
				return connect(func(c *nats.Client) error { return c.Indicate(args[0]) })
			},
		},
		watchCmd(&natsURL),
	)
	return cmd
}

func linkCmd(connect func(func(*nats.Client) error) error) *cobra.Command {
	var profile int
	cmd := &cobra.Command{
		Use:       "link <connected|advertising|disconnected>",
		Short:     "Report the link of the active profile",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"connected", "advertising", "disconnected"},
		RunE: func(_ *cobra.Command, args []string) error {
			var connected, advertising bool
			switch args[0] {
			case "connected":
				connected = true
			case "advertising":
				advertising = true
			case "disconnected":
			default:
				return fmt.Errorf("link: unknown state %q", args[0])
			}
			return connect(func(c *nats.Client) error { return c.Link(connected, advertising, profile) })
		},
	}
	cmd.Flags().IntVar(&profile, "profile", 0, "Active profile index")
	return cmd
}

func parseCapsLock(s string) (uint8, error) {
	switch s {
	case "on":
		return 0x02, nil
	case "off":
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("capslock: %q is not on, off or a flag byte", s)
	}
	return uint8(v), nil
}

// watchCmd prints every intent the daemon renders until interrupted.
func watchCmd(natsURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print rendered intents as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := nats.NewClient(*natsURL, "indicatord-watch", logging.GetLogger("nats"))
			if err := client.Connect(); err != nil {
				return fmt.Errorf("connect %s: %w", *natsURL, err)
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			unsub, err := client.OnRendered(func(e events.IntentRenderedEvent) {
				what := e.Color + " " + e.Mode
				if e.Notes > 0 {
					what = fmt.Sprintf("%d notes", e.Notes)
				}
				fmt.Fprintf(out, "#%-5d %-5s %-9s %-28s %-22s %s\n", e.Seq, e.Worker, e.Class, what, e.Reason, e.Outcome)
			})
			if err != nil {
				return err
			}
			defer unsub()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)
			<-sig
			return nil
		},
	}
}
