package cmd

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/indicatord/internal/arbiter"
	"github.com/smazurov/indicatord/internal/buzzer"
	"github.com/smazurov/indicatord/internal/indicator"
	"github.com/smazurov/indicatord/internal/intent"
)

// CreateMelodyCmd creates the melody command, which renders a built-in
// melody to a WAV file.
func CreateMelodyCmd() *cobra.Command {
	var output string
	var sampleRate int
	var degraded bool

	cmd := &cobra.Command{
		Use:   "melody [name]",
		Short: "Render a built-in melody to a WAV file",
		Long:  `Writes one of the built-in melodies to a WAV file using the same square wave the buzzer plays. Without a name, lists the available melodies.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			melodies := arbiter.Melodies()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				names := make([]string, 0, len(melodies))
				for name := range melodies {
					names = append(names, name)
				}
				slices.Sort(names)
				for _, name := range names {
					fmt.Fprintf(out, "%-10s %s\n", name, describe(melodies[name]))
				}
				return nil
			}

			notes, ok := melodies[args[0]]
			if !ok {
				return fmt.Errorf("unknown melody %q, run without arguments to list them", args[0])
			}
			if degraded {
				notes = intent.Intent{Melody: notes}.Degraded().Melody
			}
			if output == "" {
				output = args[0] + ".wav"
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			gap := indicator.DefaultConfig().NoteGap
			if err := buzzer.WriteMelody(f, notes, gap, sampleRate); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", output, err)
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(out, "Wrote %s (%s)\n", output, intent.Intent{Melody: notes}.Duration(gap).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <name>.wav)")
	cmd.Flags().IntVar(&sampleRate, "rate", buzzer.DefaultSampleRate, "Sample rate in Hz")
	cmd.Flags().BoolVar(&degraded, "degraded", false, "Render the half-length variant played in spam mode")
	return cmd
}

func describe(notes []intent.Note) string {
	s := ""
	for i, n := range notes {
		if i > 0 {
			s += " "
		}
		s += n.String()
	}
	return s
}
