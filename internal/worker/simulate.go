package worker

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"job-mailbox/internal/models"
)

// SimulatedHandler stands in for real spreadsheet processing. Each non-empty
// line of the input counts as one unit of work; the handler sleeps the job's
// delaySeconds between units and echoes the input back as the result.
func SimulatedHandler(ctx context.Context, job models.JobRecord, data []byte, report func(completed, total int)) ([]byte, string, error) {
	total := countRows(data)
	if total == 0 {
		total = 1
	}
	delay := time.Duration(job.DelaySeconds * float64(time.Second))

	for i := 1; i <= total; i++ {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(delay):
		}
		report(i, total)
	}

	summary := fmt.Sprintf("Processed %d rows from %s.", total, job.FileName)
	return data, summary, nil
}

func countRows(data []byte) int {
	n := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}
