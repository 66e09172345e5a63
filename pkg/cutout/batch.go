package cutout

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"fitscutout/internal/models"
)

// BatchReport collects the outcome of every row of a batch, in table order
type BatchReport struct {
	Results []models.Result

	Written int
	Skipped int
	Failed  int
}

// Err joins the errors of all failed rows, or returns nil
func (b BatchReport) Err() error {
	var errs []error
	for _, res := range b.Results {
		if res.Status == models.Failed {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	return errors.Join(errs...)
}

// WriteSummary prints the totals followed by one line per failed row
func (b BatchReport) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "Processed %d sources: %d written, %d skipped, %d failed\n",
		len(b.Results), b.Written, b.Skipped, b.Failed)
	for _, res := range b.Results {
		if res.Status == models.Failed {
			fmt.Fprintf(w, "  - %s: %v\n", res.Name, res.Err)
		}
	}
}

// RunBatch cuts every row on up to workers goroutines. Rows never affect
// each other: a row that fails, or panics, is recorded and the rest still
// run. Each result is reported to out as it completes.
func (c *Cutter) RunBatch(rows []TableRow, size float64, workers int, out io.Writer, verbose bool) BatchReport {
	if workers < 1 {
		workers = 1
	}

	type processingResult struct {
		idx int
		res models.Result
	}
	resultChan := make(chan processingResult, len(rows))

	go func() {
		var g errgroup.Group
		g.SetLimit(workers)
		for i, row := range rows {
			i, row := i, row
			g.Go(func() error {
				resultChan <- processingResult{idx: i, res: c.cutRow(row, size)}
				return nil
			})
		}
		g.Wait()
		close(resultChan)
	}()

	report := BatchReport{Results: make([]models.Result, len(rows))}
	completed := 0
	for r := range resultChan {
		completed++
		report.Results[r.idx] = r.res

		switch r.res.Status {
		case models.Written:
			report.Written++
		case models.Skipped:
			report.Skipped++
		case models.Failed:
			report.Failed++
		}

		Report(out, r.res, verbose)
		if verbose {
			progress := float64(completed) / float64(len(rows)) * 100
			fmt.Fprintf(out, "Processing sources: %.1f%% complete\n", progress)
		}
	}

	return report
}

// cutRow turns a table row into a result, converting panics into failures
func (c *Cutter) cutRow(row TableRow, size float64) (res models.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = models.Result{
				Name:   row.Label(),
				Status: models.Failed,
				Err:    fmt.Errorf("panic while cutting: %v", r),
			}
		}
	}()

	if row.Err != nil {
		return models.Result{Name: row.Label(), Status: models.Failed, Err: row.Err}
	}
	return c.Cut(row.Position, size)
}

// Report prints a one-line message for a result
func Report(w io.Writer, res models.Result, verbose bool) {
	switch res.Status {
	case models.Skipped:
		fmt.Fprintf(w, "Source %s completely outside image, skipping!\n", res.Name)
	case models.Failed:
		fmt.Fprintf(w, "Source %s failed: %v\n", res.Name, res.Err)
	case models.Written:
		if !verbose {
			return
		}
		fmt.Fprintf(w, "Wrote %s: %s\n", res.Path, res.Window)
		if res.Stats.Count > 0 {
			fmt.Fprintf(w, "  pixels=%d mean=%g std=%g min=%g max=%g\n",
				res.Stats.Count, res.Stats.Mean, res.Stats.StdDev, res.Stats.Min, res.Stats.Max)
		}
		if res.PreviewPath != "" {
			fmt.Fprintf(w, "  preview %s\n", res.PreviewPath)
		}
	}
}
