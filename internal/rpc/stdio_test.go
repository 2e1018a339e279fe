package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestServeStdio(t *testing.T) {
	s := NewServer(&fakeCore{}, nil)
	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		``,
		`garbage`,
		`{"jsonrpc":"2.0","id":2,"method":"get_runtime_profile"}`,
	}, "\n"))
	var out strings.Builder

	if err := s.ServeStdio(context.Background(), in, &out); err != nil {
		t.Fatalf("ServeStdio: %v", err)
	}

	var lines []Response
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("response line is not JSON: %q", scanner.Text())
		}
		lines = append(lines, resp)
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 responses (blank line skipped), got %d", len(lines))
	}
	if lines[0].Error != nil || string(lines[0].ID) != "1" {
		t.Errorf("ping response = %+v", lines[0])
	}
	if lines[1].Error == nil || lines[1].Error.Code != CodeParseError {
		t.Errorf("garbage line should be a parse error: %+v", lines[1])
	}
	if lines[2].Error != nil || string(lines[2].ID) != "2" {
		t.Errorf("profile response = %+v", lines[2])
	}
}

func TestServeStdioStopsOnCancel(t *testing.T) {
	s := NewServer(&fakeCore{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out strings.Builder
	err := s.ServeStdio(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if err == nil {
		t.Fatal("expected context error")
	}
	if out.Len() != 0 {
		t.Errorf("no response expected after cancel, got %q", out.String())
	}
}
