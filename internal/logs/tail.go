package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const defaultPollInterval = 250 * time.Millisecond

// ErrNoLog is returned when a job has not written a log yet.
var ErrNoLog = errors.New("job log not found")

// Chunk is a batch of complete lines and the offset just past them.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Last returns up to n trailing lines of path. n <= 0 returns no lines and the
// current end offset.
func Last(path string, n int) (Chunk, error) {
	file, err := openLog(path)
	if err != nil {
		return Chunk{}, err
	}
	defer file.Close()

	if n <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return Chunk{}, fmt.Errorf("seek job log: %w", err)
		}
		return Chunk{Offset: end}, nil
	}

	ring := make([]string, 0, n)
	start := 0
	offset, err := scanLines(file, 0, func(line string) {
		if len(ring) < n {
			ring = append(ring, line)
			return
		}
		ring[start] = line
		start = (start + 1) % n
	})
	if err != nil {
		return Chunk{}, err
	}
	lines := append(append([]string{}, ring[start:]...), ring[:start]...)
	return Chunk{Lines: lines, Offset: offset}, nil
}

// Since returns the complete lines written after offset. An offset past the end
// of the file (after truncation) restarts from the beginning.
func Since(path string, offset int64) (Chunk, error) {
	file, err := openLog(path)
	if err != nil {
		return Chunk{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Chunk{}, fmt.Errorf("stat job log: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	var lines []string
	next, err := scanLines(file, offset, func(line string) { lines = append(lines, line) })
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Lines: lines, Offset: next}, nil
}

// FollowOptions tunes Follow.
type FollowOptions struct {
	Interval time.Duration
	// Done is polled after each read; returning true ends the follow once the
	// remaining lines are drained.
	Done func() bool
}

// Follow emits lines appended to path after offset until ctx is canceled or
// opts.Done reports true. A missing log is waited for rather than treated as
// an error.
func Follow(ctx context.Context, path string, offset int64, opts FollowOptions, emit func(string)) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		finished := opts.Done != nil && opts.Done()
		chunk, err := Since(path, offset)
		switch {
		case errors.Is(err, ErrNoLog):
		case err != nil:
			return err
		default:
			for _, line := range chunk.Lines {
				emit(line)
			}
			offset = chunk.Offset
		}
		if finished {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func openLog(path string) (*os.File, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoLog
	}
	if err != nil {
		return nil, fmt.Errorf("open job log: %w", err)
	}
	return file, nil
}

// scanLines reads complete lines from offset and returns the offset after the
// last newline, so a line still being written is picked up on the next call.
func scanLines(file *os.File, offset int64, fn func(string)) (int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek job log: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadSlice('\n')
		if err == nil {
			offset += int64(len(line))
			fn(trimLine(line))
			continue
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			// Oversized line: keep the buffered prefix and skip the rest.
			prefix := string(line)
			rest, readErr := skipLine(reader)
			if readErr != nil {
				return offset, nil
			}
			offset += int64(len(prefix) + rest)
			fn(prefix)
			continue
		}
		if errors.Is(err, io.EOF) {
			return offset, nil
		}
		return offset, fmt.Errorf("read job log: %w", err)
	}
}

// skipLine discards the remainder of an oversized line and returns how many
// bytes it consumed. An unterminated tail is reported as io.EOF.
func skipLine(reader *bufio.Reader) (int, error) {
	total := 0
	for {
		chunk, err := reader.ReadSlice('\n')
		total += len(chunk)
		if err == nil {
			return total, nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return total, io.EOF
		}
	}
}

func trimLine(line []byte) string {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	if n > 0 && line[n-1] == '\r' {
		n--
	}
	return string(line[:n])
}
