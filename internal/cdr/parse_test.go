package cdr

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLines_Empty(t *testing.T) {
	result := ParseLines(nil)
	assert.Equal(t, 0, result.TotalLines)
	assert.Equal(t, 0, result.FailedLines)
	assert.Empty(t, result.Events)
}

func TestParseLines_Counts(t *testing.T) {
	lines := []string{
		"20240115,09:30:45,0,x",
		"garbage",
		"20240115,10:15:00,1,x",
		"20240115,25:00:00,0,x",
		"20240116,11:00:00,5,x",
	}

	result := ParseLines(lines)
	assert.Equal(t, 5, result.TotalLines)
	assert.Equal(t, 3, len(result.Events))
	assert.Equal(t, 2, result.FailedLines)
}

func TestParseLines_LargeInputAllWorkersJoin(t *testing.T) {
	// Enough lines that every worker gets a real chunk; every 10th is bad.
	var lines []string
	for i := 0; i < 10000; i++ {
		if i%10 == 9 {
			lines = append(lines, "not a record")
			continue
		}
		lines = append(lines, fmt.Sprintf("20240115,%02d:%02d:%02d,%d,tail", i%24, i%60, i%60, i%3))
	}

	result := ParseLines(lines)
	assert.Equal(t, 10000, result.TotalLines)
	assert.Equal(t, 9000, len(result.Events))
	assert.Equal(t, 1000, result.FailedLines)

	// Order is unspecified, but the multiset of decoded times must match a
	// sequential decode.
	var parallel []string
	for _, event := range result.Events {
		parallel = append(parallel, event.CallTime)
	}
	var sequential []string
	for i, line := range lines {
		if event, ok := DecodeLine(line, i+1); ok {
			sequential = append(sequential, event.CallTime)
		}
	}
	sort.Strings(parallel)
	sort.Strings(sequential)
	assert.Equal(t, sequential, parallel)
}

func TestReadLines(t *testing.T) {
	input := "20240115,09:30:45,0,x\n20240115,10:15:00,1,x\nlast line no newline"
	lines, err := ReadLines(strings.NewReader(input))
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"20240115,09:30:45,0,x",
		"20240115,10:15:00,1,x",
		"last line no newline",
	}, lines)
}
