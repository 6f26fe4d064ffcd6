package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pocketsync/internal/art"
	"pocketsync/internal/config"
	"pocketsync/internal/format"
	"pocketsync/internal/plan"
	"pocketsync/internal/syncer"
)

// outputFlags are the encoding overrides shared by sync and plan.
type outputFlags struct {
	format      string
	bitrateKbps int
	quality     float64
	complexity  int
	artStrategy string
}

func registerOutputFlags(cmd *cobra.Command, flags *outputFlags) {
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: "+strings.Join(format.Names(), ", "))
	cmd.Flags().IntVar(&flags.bitrateKbps, "bitrate", 0, "Target bitrate in kbps (mp3-cbr, opus)")
	cmd.Flags().Float64Var(&flags.quality, "quality", 0, "Quality factor (mp3-vbr, vorbis) or compression level (flac)")
	cmd.Flags().IntVar(&flags.complexity, "complexity", 0, "Encoder complexity (opus)")
	cmd.Flags().StringVar(&flags.artStrategy, "art", "", "Album art strategy: none, embed-all, prefer-file, file-only")
}

// resolveEncoding merges flag overrides over the configured output section.
func resolveEncoding(cmd *cobra.Command, cfg *config.Config, flags outputFlags) (format.Encoding, error) {
	name := cfg.Output.Format
	if flags.format != "" {
		name = flags.format
	}
	params := format.Params{
		BitrateKbps: cfg.Output.BitrateKbps,
		Quality:     cfg.Output.Quality,
		QualitySet:  cfg.Output.QualitySet,
		Complexity:  cfg.Output.Complexity,
	}
	if flags.bitrateKbps != 0 {
		params.BitrateKbps = flags.bitrateKbps
	}
	if cmd.Flags().Changed("quality") {
		params.Quality = flags.quality
		params.QualitySet = true
	}
	if flags.complexity != 0 {
		params.Complexity = flags.complexity
	}
	return format.Parse(name, params)
}

func resolveArtStrategy(cfg *config.Config, flags outputFlags) (art.Strategy, error) {
	name := cfg.Art.Strategy
	if flags.artStrategy != "" {
		name = flags.artStrategy
	}
	return art.ParseStrategy(name)
}

func resolveRoots(args []string) (source, target string, err error) {
	source, err = filepath.Abs(args[0])
	if err != nil {
		return "", "", fmt.Errorf("resolve source root: %w", err)
	}
	target, err = filepath.Abs(args[1])
	if err != nil {
		return "", "", fmt.Errorf("resolve target root: %w", err)
	}
	if source == target {
		return "", "", fmt.Errorf("source and target are the same directory: %s", source)
	}
	return source, target, nil
}

func stderrIsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// planSummaryRows shapes the per-action totals for table output.
func planSummaryRows(p *plan.Plan) [][]string {
	actions := []plan.Action{
		plan.ActionCopy,
		plan.ActionTranscode,
		plan.ActionCopyArt,
		plan.ActionSkip,
		plan.ActionFilter,
		plan.ActionFail,
	}
	rows := make([][]string, 0, len(actions))
	for _, action := range actions {
		rows = append(rows, []string{action.String(), strconv.Itoa(p.Count(action))})
	}
	return rows
}

func renderReport(report *syncer.Report) string {
	var b strings.Builder

	label := "Sync complete"
	if report.DryRun {
		label = "Dry run complete"
	}
	fmt.Fprintf(&b, "%s in %s\n", label, report.Duration().Round(10*time.Millisecond))

	rows := [][]string{
		{"copied", strconv.Itoa(report.Copied)},
		{"transcoded", strconv.Itoa(report.Transcoded)},
		{"art copied", strconv.Itoa(report.ArtCopied)},
		{"skipped", strconv.Itoa(report.Skipped)},
		{"filtered", strconv.Itoa(report.Filtered)},
		{"failed", strconv.Itoa(report.Failed())},
	}
	b.WriteString(renderTable([]string{"Result", "Files"}, rows, 1))
	b.WriteString("\n")

	if report.SourceBytes > 0 && !report.DryRun {
		fmt.Fprintf(&b, "Processed %s of source audio into %s (%.0f%% of original size)\n",
			humanize.Bytes(uint64(report.SourceBytes)),
			humanize.Bytes(uint64(report.TargetBytes)),
			float64(report.TargetBytes)/float64(report.SourceBytes)*100)
	}

	for _, failure := range report.Failures {
		fmt.Fprintf(&b, "failed: %s (%s): %v\n", failure.Path, failure.Reason, failure.Err)
	}

	return b.String()
}

func warnMissingArt(cmd *cobra.Command, withoutArt []string) {
	if len(withoutArt) == 0 {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d audio files have no album art under the chosen strategy\n", len(withoutArt))
	const show = 5
	for i, rel := range withoutArt {
		if i == show {
			fmt.Fprintf(cmd.ErrOrStderr(), "  ... and %d more\n", len(withoutArt)-show)
			break
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", rel)
	}
}
