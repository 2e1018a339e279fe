package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// maxLineBytes bounds a single request line; tick batches can be large
const maxLineBytes = 16 << 20

// ServeStdio answers line-delimited JSON-RPC from r on w until r is exhausted
// or ctx is cancelled. Blank lines are skipped. Every response is one line.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	logrus.Info("🚀 Serving JSON-RPC on stdio")

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		// Encoder writes a trailing newline after each value
		if err := enc.Encode(s.HandleMessage(ctx, line)); err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	return nil
}
