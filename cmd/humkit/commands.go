package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/starford/humkit/internal"
	"github.com/starford/humkit/internal/checker"
	"github.com/starford/humkit/internal/midiexport"
	"github.com/starford/humkit/internal/models"
	"github.com/starford/humkit/internal/scoremeta"
	"github.com/starford/humkit/internal/scoreservice"
	"github.com/starford/humkit/pkg/humdrum"
)

var errChecksFailed = errors.New("some files failed to parse")

// cliLogger logs to stderr so command output on stdout stays clean.
func cliLogger(cfg *internal.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Print metadata and analysis of Humdrum files as JSON",
		ArgsUsage: "<file>...",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("info: at least one file is required")
			}
			return printInfo(os.Stdout, paths, cliLogger(cfg))
		},
	}
}

type fileInfo struct {
	Path     string                 `json:"path"`
	Metadata models.ScoreMetadata   `json:"metadata"`
	Analysis *scoreservice.Analysis `json:"analysis,omitempty"`
}

func printInfo(w io.Writer, paths []string, logger *slog.Logger) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out := fileInfo{Path: p}
		res, err := scoremeta.Parse(filepath.Base(p), data, humdrum.WithLogger(logger))
		if err != nil {
			out.Metadata = scoremeta.Invalid(err)
		} else {
			out.Metadata = res.Metadata
			out.Analysis = scoreservice.Analyze(res.File)
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Validate Humdrum files concurrently; segmented files are checked per segment",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Usage:   "Number of files parsed in parallel (default from config)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return fmt.Errorf("check: at least one file is required")
			}
			limit := cfg.Check.Concurrency
			if j := int(cmd.Int("jobs")); j > 0 {
				limit = j
			}
			return runCheck(ctx, os.Stdout, paths, limit, cliLogger(cfg))
		},
	}
}

func runCheck(ctx context.Context, w io.Writer, paths []string, limit int, logger *slog.Logger) error {
	results, err := checker.Check(ctx, paths, limit, logger)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintln(w, r.String())
	}
	valid, invalid := checker.Summary(results)
	fmt.Fprintf(w, "%d valid, %d invalid\n", valid, invalid)
	if invalid > 0 {
		return errChecksFailed
	}
	return nil
}

func midiCommand() *cli.Command {
	return &cli.Command{
		Name:      "midi",
		Usage:     "Convert the **kern spines of a Humdrum file to a Standard MIDI File",
		ArgsUsage: "<input> <output.mid>",
		Flags: []cli.Flag{
			&cli.FloatFlag{
				Name:  "tempo",
				Usage: "Tempo in quarter notes per minute when the score has no *MM",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("midi: expected <input> <output.mid>")
			}
			opts := cfg.MIDI.Options()
			if t := cmd.Float("tempo"); t > 0 {
				opts.Tempo = t
			}
			return convertMIDI(cmd.Args().Get(0), cmd.Args().Get(1), opts, cliLogger(cfg))
		},
	}
}

func convertMIDI(in, out string, opts midiexport.Options, logger *slog.Logger) error {
	f, err := humdrum.ReadFile(in, humdrum.WithLogger(logger))
	if err != nil {
		return err
	}
	dst, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := midiexport.Write(dst, f, opts); err != nil {
		_ = dst.Close()
		_ = os.Remove(out)
		return err
	}
	return dst.Close()
}
