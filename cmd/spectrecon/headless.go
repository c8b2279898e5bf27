package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"spectrecon/internal/models"
	"spectrecon/pkg/reconstruction"
	"spectrecon/pkg/session"
)

// headlessJob is one non-interactive run assembled from the flags
type headlessJob struct {
	Input      string
	List       bool
	Main       int
	Scatter    string
	Iterations int
	Subsets    int
	OutputDir  string
	Name       string
}

// runHeadless labels the windows given on the command line, reconstructs and
// optionally saves the result.
func runHeadless(ctx context.Context, sess *session.Session, job headlessJob, out io.Writer) error {
	if err := sess.Open(job.Input); err != nil {
		return userError(err)
	}

	if job.List {
		printWindows(out, sess.Windows())
		return nil
	}

	banner(out)

	scatter, err := parseIndices(job.Scatter)
	if err != nil {
		return err
	}
	if job.Main >= 0 {
		if err := sess.SetLabel(job.Main, models.Main); err != nil {
			return err
		}
	}
	for _, idx := range scatter {
		if err := sess.SetLabel(idx, models.Scatter); err != nil {
			return err
		}
	}
	if n := len(sess.Selection().Scatter()); n != len(scatter) {
		return fmt.Errorf("at most two distinct scatter windows are supported, got %q", job.Scatter)
	}

	fmt.Fprintf(out, "Reconstructing %s with %d iterations and %d subsets...\n", job.Input, job.Iterations, job.Subsets)
	startTime := time.Now()
	vol, err := sess.Reconstruct(ctx, job.Iterations, job.Subsets)
	if err != nil {
		return userError(err)
	}
	elapsed := time.Since(startTime)

	req := sess.LastRequest()
	stats := reconstruction.Summarize(vol)
	fmt.Fprintf(out, "\nReconstruction completed in %.2f seconds\n", elapsed.Seconds())
	fmt.Fprintf(out, "Windows: main=%d lower=%s upper=%s\n",
		req.Inputs.MainIndex,
		indexText(req.Inputs.LowerScatterIndex),
		indexText(req.Inputs.UpperScatterIndex))
	fmt.Fprintf(out, "Volume: %dx%dx%d voxels of %.2fx%.2fx%.2f mm\n",
		vol.Width, vol.Height, vol.Depth, vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z)
	fmt.Fprintf(out, "Counts: total %.1f, max %.3f, mean %.3f ± %.3f\n",
		stats.Total, stats.Max, stats.Mean, stats.StdDev)

	if job.Name == "" {
		return nil
	}
	res, err := sess.Save(job.OutputDir, job.Name)
	if err != nil {
		return userError(err)
	}
	fmt.Fprintf(out, "Saved %d slices to %s\n", len(res.Files), res.Directory)
	return nil
}

// userError prefixes err with its user message unless that message is the
// error text itself
func userError(err error) error {
	msg := session.UserMessage(err).Message
	if msg == "" || msg == err.Error() {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// parseIndices parses a comma-separated list of window indices
func parseIndices(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		idx, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid window index %q", field)
		}
		out = append(out, idx)
	}
	return out, nil
}

func printWindows(out io.Writer, windows []models.EnergyWindow) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Index\tName\tLower\tUpper\tCenter")
	for _, w := range windows {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\n", w.Index, w.Name, w.LowerLimit, w.UpperLimit, w.Center())
	}
	tw.Flush()
}

func indexText(idx int) string {
	if idx < 0 {
		return "-"
	}
	return strconv.Itoa(idx)
}
