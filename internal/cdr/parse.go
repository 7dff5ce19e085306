package cdr

import (
	"bufio"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/haiminhdev/callstat/db"
)

// Scanner buffer sized for the occasional very long line in a 100 MB export.
const maxLineBytes = 1024 * 1024

// ParseResult is the joined output of a parallel parse of one file.
// Event order is unspecified; the aggregation engine does not depend on
// insertion order.
type ParseResult struct {
	Events      []db.CallEvent
	TotalLines  int
	FailedLines int
}

// ReadLines reads every line of a switch export file into memory.
func ReadLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ParseLines decodes all lines of a file across a fixed worker pool sized to
// the available parallelism. Decoding is pure, so each worker fills its own
// slice over a disjoint chunk and the results are joined at the end; no state
// crosses worker boundaries.
func ParseLines(lines []string) ParseResult {
	total := len(lines)
	if total == 0 {
		return ParseResult{}
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > total {
		workers = total
	}
	chunk := (total + workers - 1) / workers

	perWorker := make([][]db.CallEvent, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= total {
			break
		}
		if end > total {
			end = total
		}

		w := w
		g.Go(func() error {
			out := make([]db.CallEvent, 0, end-start)
			for i := start; i < end; i++ {
				if event, ok := DecodeLine(lines[i], i+1); ok {
					out = append(out, event)
				}
			}
			perWorker[w] = out
			return nil
		})
	}
	// Workers never return errors; Wait is only the join point.
	_ = g.Wait()

	events := make([]db.CallEvent, 0, total)
	for _, part := range perWorker {
		events = append(events, part...)
	}

	return ParseResult{
		Events:      events,
		TotalLines:  total,
		FailedLines: total - len(events),
	}
}
