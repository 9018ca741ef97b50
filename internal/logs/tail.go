package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"archivist/internal/logging"
)

const pollInterval = 250 * time.Millisecond

// TailOptions controls a single Tail call. A negative Offset reads the last
// Limit lines; otherwise reading resumes at Offset.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
	Filter Filter
}

// Filter narrows tailed lines. Zero values match everything.
type Filter struct {
	AssetID   string
	Component string
}

func (f Filter) empty() bool {
	return f.AssetID == "" && f.Component == ""
}

// Match reports whether a log line passes the filter. JSON lines are
// matched on their structured fields; console lines fall back to substring
// matching.
func (f Filter) Match(line string) bool {
	if f.empty() {
		return true
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		if f.AssetID != "" && !strings.Contains(line, f.AssetID) {
			return false
		}
		return f.Component == "" || strings.Contains(line, f.Component)
	}
	if f.AssetID != "" && fmt.Sprint(record[logging.FieldAssetID]) != f.AssetID {
		return false
	}
	if f.Component != "" && fmt.Sprint(record[logging.FieldComponent]) != f.Component {
		return false
	}
	return true
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from the daemon log at path. A missing file yields an
// empty result rather than an error.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	if opts.Offset < 0 {
		lines, offset, err := readLastLines(path, opts.Limit, opts.Filter)
		if err != nil {
			return result, err
		}
		result.Lines = lines
		result.Offset = offset
		if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
			return waitForLines(ctx, path, offset, opts.Wait, opts.Filter)
		}
		return result, nil
	}

	offset := opts.Offset
	if offset > info.Size() {
		// rotated or truncated
		offset = 0
	}
	lines, newOffset, err := readForward(path, offset, opts.Filter)
	if err != nil {
		return result, err
	}
	result.Lines = lines
	result.Offset = newOffset
	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return waitForLines(ctx, path, newOffset, opts.Wait, opts.Filter)
	}
	return result, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}

func readLastLines(path string, limit int, filter Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	ring := make([]string, limit)
	count, idx := 0, 0
	scanner := newScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !filter.Match(line) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

func readForward(path string, offset int64, filter Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	scanner := newScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); filter.Match(line) {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	newOffset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, newOffset, nil
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration, filter Filter) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, newOffset, err := readForward(path, offset, filter)
		if err != nil {
			return result, err
		}
		result.Offset = newOffset
		offset = newOffset
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
