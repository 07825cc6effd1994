package cmd

import (
	"encoding/json"
	"io"

	"github.com/jsphweid/chordscribe/midi"
	"github.com/jsphweid/chordscribe/model"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>...",
	Short: "Reads chord timelines back from rendered MIDI files",
	Long:  `Reads chord timelines back from MIDI files written by analyze --midi or ?format=midi.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			if err := inspect(cmd.OutOrStdout(), path); err != nil {
				return err
			}
		}
		return nil
	},
}

func inspect(w io.Writer, path string) error {
	timeline, err := midi.ReadTimeline(path)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(model.FileResult{File: path, Chords: timeline})
}
