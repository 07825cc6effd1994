package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jsphweid/chordscribe/analysis"
	"github.com/jsphweid/chordscribe/chord"
	"github.com/jsphweid/chordscribe/constants"
	"github.com/jsphweid/chordscribe/file"
	"github.com/jsphweid/chordscribe/midi"
	"github.com/jsphweid/chordscribe/model"
	"github.com/jsphweid/chordscribe/util"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

var (
	analyzeOut         string
	analyzeMidi        bool
	analyzeConcurrency int
	analyzeMax         int
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "write one JSON file per input to this dir instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeMidi, "midi", false, "also write a .mid per input (requires --out)")
	analyzeCmd.Flags().IntVarP(&analyzeConcurrency, "concurrency", "c", 0, "files analyzed at once (overrides analysis.concurrency)")
	analyzeCmd.Flags().IntVar(&analyzeMax, "max", 0, "stop after this many files (0 means all)")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|dir>...",
	Short: "Detects chords in audio files",
	Long:  `Detects chords in each audio file given, walking directories for known audio extensions.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeMidi && analyzeOut == "" {
			return errors.New("--midi requires --out")
		}
		if analyzeConcurrency > 0 {
			cfg.Analysis.Concurrency = analyzeConcurrency
		}

		paths, err := util.GatherAudioPaths(args, constants.AudioExtensions, analyzeMax)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return errors.New("no audio files found")
		}

		bank, err := loadBank(cfg)
		if err != nil {
			return err
		}
		decoder, extractor := newPipeline(cfg)
		if err := decoder.Check(); err != nil {
			return err
		}
		analyzer := analysis.New(decoder, extractor,
			analysis.WithBanks(analysis.StaticBank(bank)),
			analysis.WithThreshold(cfg.Analysis.Threshold),
		)

		results := analyzeAll(cmd.Context(), analyzer, paths, cfg.Analysis.Concurrency, cmd.ErrOrStderr())
		return writeResults(cmd.OutOrStdout(), results, bank)
	},
}

// analyzeAll runs every path through the analyzer, at most limit at a time.
// Results come back in input order; failures are recorded per file.
func analyzeAll(ctx context.Context, analyzer *analysis.Analyzer, paths []string, limit int, progress io.Writer) []fileOutcome {
	p := mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(progress))
	bar := p.AddBar(int64(len(paths)),
		mpb.PrependDecorators(
			decor.Name("analyzing ", decor.WC{W: 10}),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), " done"),
		),
	)

	results := make([]fileOutcome, len(paths))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(util.Clamp(limit, 1, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			defer bar.Increment()
			res, err := analyzer.AnalyzeFile(ctx, path)
			mu.Lock()
			results[i] = fileOutcome{path: path, result: res, err: err}
			mu.Unlock()
			if err != nil && analysis.KindOf(err) == analysis.KindInternal && ctx.Err() != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("analysis interrupted", slog.Any("error", err))
	}
	p.Wait()
	return results
}

type fileOutcome struct {
	path   string
	result *model.AnalysisResult
	err    error
}

func (o fileOutcome) fileResult() model.FileResult {
	fr := model.FileResult{File: o.path}
	switch {
	case o.err != nil:
		fr.Error = o.err.Error()
	case o.result == nil:
		fr.Error = "not analyzed"
	default:
		fr.Chords = model.NewDetectResponse(o.result).Chords
		fr.Duration = o.result.Duration
	}
	return fr
}

func writeResults(stdout io.Writer, results []fileOutcome, bank *chord.Bank) error {
	var errs []error
	var outPaths map[string]string
	if analyzeOut != "" {
		if err := os.MkdirAll(analyzeOut, 0o755); err != nil {
			return err
		}
		paths := make([]string, len(results))
		for i, r := range results {
			paths[i] = r.path
		}
		outPaths = file.CreateOutputPathMap(paths, analyzeOut, ".json")
	}

	enc := json.NewEncoder(stdout)
	for _, r := range results {
		fr := r.fileResult()
		if fr.Error != "" {
			errs = append(errs, fmt.Errorf("%s: %s", r.path, fr.Error))
		}
		if outPaths == nil {
			if err := enc.Encode(fr); err != nil {
				return err
			}
			continue
		}
		if err := writeJSONFile(outPaths[r.path], fr); err != nil {
			errs = append(errs, err)
			continue
		}
		if analyzeMidi && r.result != nil {
			midiPath := strings.TrimSuffix(outPaths[r.path], ".json") + ".mid"
			if err := writeMidiFile(midiPath, r.result, bank); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func writeMidiFile(path string, res *model.AnalysisResult, bank *chord.Bank) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := midi.Write(f, res.Timeline, res.Duration, bank); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
