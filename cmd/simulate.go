package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/smazurov/indicatord/internal/buzzer"
	"github.com/smazurov/indicatord/internal/events"
	"github.com/smazurov/indicatord/internal/indicator"
	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/led"
	"github.com/smazurov/indicatord/internal/logging"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	statStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
)

type scenario struct {
	key   string
	title string
	// expect describes what a healthy pipeline shows.
	expect string
	run    func(m *indicator.Manager)
}

var scenarios = []scenario{
	{
		key:    "a",
		title:  "Critical battery overrides the link color",
		expect: "red blink while connected",
		run: func(m *indicator.Manager) {
			m.OnLinkChanged(true, false, 0)
			time.Sleep(300 * time.Millisecond)
			m.OnBatteryChanged(5)
			time.Sleep(1500 * time.Millisecond)
		},
	},
	{
		key:    "b",
		title:  "Bouncy caps lock key",
		expect: "one settle recompute, caps lock off",
		run: func(m *indicator.Manager) {
			for range 2 {
				m.OnCapsLockChanged(0x02)
				time.Sleep(20 * time.Millisecond)
				m.OnCapsLockChanged(0)
				time.Sleep(20 * time.Millisecond)
			}
			time.Sleep(800 * time.Millisecond)
		},
	},
	{
		key:    "c",
		title:  "Flaky radio reconnecting",
		expect: "first reconnects render, the rest suppressed until 2s of quiet",
		run: func(m *indicator.Manager) {
			for range 10 {
				m.OnLinkChanged(false, true, 0)
				time.Sleep(50 * time.Millisecond)
				m.OnLinkChanged(true, false, 0)
				time.Sleep(50 * time.Millisecond)
			}
			time.Sleep(2500 * time.Millisecond)
			m.OnLinkChanged(false, true, 0)
			time.Sleep(600 * time.Millisecond)
		},
	},
}

// CreateSimulateCmd creates the simulate command, which replays the
// reference scenarios against a terminal indicator.
func CreateSimulateCmd() *cobra.Command {
	var which string
	var soundWAV string
	var bootEffect bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay reference scenarios on a terminal indicator",
		Long:  `Runs the critical battery, bouncy caps lock and flaky radio scenarios through the full pipeline and prints every color change and the lane counters.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected, err := selectScenarios(which)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var recorder *buzzer.Recorder
			if soundWAV != "" {
				recorder, err = buzzer.NewRecorder(soundWAV, buzzer.DefaultSampleRate)
				if err != nil {
					return err
				}
			}

			cfg := indicator.DefaultConfig()
			cfg.BootEffect = bootEffect
			cfg.StartupSound = bootEffect && recorder != nil

			for _, sc := range selected {
				var sound intent.AudioSink
				if recorder != nil {
					sound = recorder
				}
				if err := runScenario(out, sc, cfg, sound); err != nil {
					return err
				}
			}

			if recorder != nil {
				if err := recorder.Close(); err != nil {
					return fmt.Errorf("write %s: %w", soundWAV, err)
				}
				fmt.Fprintln(out, noteStyle.Render("Sound recorded to "+soundWAV))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&which, "scenario", "all", "Scenario to run: a, b, c or all")
	cmd.Flags().StringVar(&soundWAV, "sound-wav", "", "Record the sound lane to this WAV file")
	cmd.Flags().BoolVar(&bootEffect, "boot-effect", false, "Play the startup effect before each scenario")
	return cmd
}

func selectScenarios(which string) ([]scenario, error) {
	if which == "all" {
		return scenarios, nil
	}
	for _, sc := range scenarios {
		if sc.key == which {
			return []scenario{sc}, nil
		}
	}
	return nil, fmt.Errorf("unknown scenario %q, want a, b, c or all", which)
}

func runScenario(out io.Writer, sc scenario, cfg indicator.Config, sound intent.AudioSink) error {
	fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("Scenario %s: %s", sc.key, sc.title)))
	fmt.Fprintln(out, noteStyle.Render("expect: "+sc.expect))

	bus := events.New()
	unsub := bus.Subscribe(func(e events.IntentRenderedEvent) {
		if e.Worker == indicator.LaneSound {
			fmt.Fprintln(out, noteStyle.Render(fmt.Sprintf("          ♪ %s %d notes %s", e.Reason, e.Notes, e.Outcome)))
		}
	})
	defer unsub()

	m, err := indicator.NewManager(cfg, led.NewTerminal(out), sound, bus, logging.GetLogger("indicator"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.OnBatteryChanged(80)
	m.OnBootComplete()
	time.Sleep(200 * time.Millisecond)
	before := m.Status().Recomputes

	sc.run(m)

	st := m.Status()
	m.Stop()

	fmt.Fprintln(out, statStyle.Render(fmt.Sprintf("current=%s recomputes=%d pending=%t",
		st.Current, st.Recomputes-before, st.Pending)))
	for _, l := range st.Lanes {
		fmt.Fprintln(out, statStyle.Render(fmt.Sprintf("%-5s admitted=%d suppressed=%d degraded=%d bypassed=%d dropped=%d",
			l.Name, l.Admitted, l.Suppressed, l.Degraded, l.Bypassed, l.Dropped)))
	}
	fmt.Fprintln(out)
	return nil
}
