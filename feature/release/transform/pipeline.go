package transform

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// StreamingFileTransformation applies an ordered list of column rewrites
// to every data line of a file in a single buffered pass. The header line
// passes through unmodified.
type StreamingFileTransformation struct {
	steps []LineTransformation
}

// NewStreamingFileTransformation builds a pipeline from the given steps.
func NewStreamingFileTransformation(steps ...LineTransformation) *StreamingFileTransformation {
	return &StreamingFileTransformation{steps: steps}
}

// Append adds steps to the end of the pipeline.
func (t *StreamingFileTransformation) Append(steps ...LineTransformation) *StreamingFileTransformation {
	t.steps = append(t.steps, steps...)
	return t
}

// Prepend inserts a step at the front of the pipeline. Conditional fixes
// that must observe column values before id substitution are injected this
// way.
func (t *StreamingFileTransformation) Prepend(step LineTransformation) *StreamingFileTransformation {
	t.steps = append([]LineTransformation{step}, t.steps...)
	return t
}

// Transform streams the file from r to w, rewriting each data line.
// Output lines are tab-joined and CRLF-terminated.
func (t *StreamingFileTransformation) Transform(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	bw := bufio.NewWriter(w)

	if !scanner.Scan() {
		return fmt.Errorf("transform: input has no header line")
	}
	if _, err := bw.WriteString(scanner.Text() + "\r\n"); err != nil {
		return err
	}

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		columns := strings.Split(line, "\t")
		for _, step := range t.steps {
			if err := step.Apply(ctx, columns); err != nil {
				return fmt.Errorf("transform line %d: %w", lineNo, err)
			}
		}
		if _, err := bw.WriteString(strings.Join(columns, "\t") + "\r\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return bw.Flush()
}
