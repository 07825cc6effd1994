package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jsphweid/chordscribe/audio"
	"github.com/jsphweid/chordscribe/catalog"
	"github.com/jsphweid/chordscribe/chord"
	"github.com/jsphweid/chordscribe/chroma"
	"github.com/jsphweid/chordscribe/config"
	"github.com/jsphweid/chordscribe/observe"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "chordscribe",
	Short:         "Chord recognition for audio recordings",
	Long:          `Turns audio recordings into time-stamped chord timelines, from the command line or over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		level, err := observe.ParseLevel(c.Log.Level)
		if err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
		slog.SetDefault(observe.NewLogger(os.Stderr, level, c.Log.Format))
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

// loadBank returns the configured catalog, or the default bank when no
// catalog path is set.
func loadBank(c *config.Config) (*chord.Bank, error) {
	if c.Analysis.CatalogPath == "" {
		return chord.DefaultBank(), nil
	}
	bank, err := catalog.Load(c.Analysis.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return bank, nil
}

func newPipeline(c *config.Config) (*audio.FFmpeg, *chroma.STFT) {
	return audio.NewFFmpeg(c.Analysis.FFmpegPath, c.Analysis.SampleRate),
		chroma.NewSTFT(c.Analysis.FrameSize, c.Analysis.HopLength)
}
