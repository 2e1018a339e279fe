package playback

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sh4869221b/niconeon/internal/models"
)

type hideUsers map[string]bool

func (h hideUsers) ShouldHide(c *models.CommentEvent) bool {
	return h[c.UserID]
}

func commentsAt(ats ...int64) []models.CommentEvent {
	out := make([]models.CommentEvent, len(ats))
	for i, at := range ats {
		out[i] = models.CommentEvent{
			CommentID: fmt.Sprintf("c%d", i),
			AtMs:      at,
			UserID:    fmt.Sprintf("u%d", i%3),
			Text:      fmt.Sprintf("text %d", i),
		}
	}
	return out
}

func ids(comments []models.CommentEvent) string {
	parts := make([]string, len(comments))
	for i, c := range comments {
		parts[i] = fmt.Sprintf("%d", c.AtMs)
	}
	return strings.Join(parts, ",")
}

func newTestSession(comments []models.CommentEvent) *Session {
	return NewSession(models.NewSession("sm9"), comments)
}

func TestTickEmitsExpectedWindow(t *testing.T) {
	s := newTestSession(commentsAt(200, 100))

	first := s.ApplyBatch([]Sample{{PositionMs: 150}}, nil)
	if got := ids(first.Emitted); got != "100" {
		t.Fatalf("first tick emitted %q, want 100", got)
	}

	second := s.ApplyBatch([]Sample{{PositionMs: 250}}, nil)
	if got := ids(second.Emitted); got != "200" {
		t.Fatalf("second tick emitted %q, want 200", got)
	}
	if second.FinalPositionMs != 250 || second.SamplesProcessed != 1 {
		t.Fatalf("unexpected result %+v", second)
	}
}

func TestBoundaryCommentIsNotEmittedTwice(t *testing.T) {
	s := newTestSession(commentsAt(100, 100, 200))

	first := s.ApplyBatch([]Sample{{PositionMs: 100}}, nil)
	if got := ids(first.Emitted); got != "100,100" {
		t.Fatalf("first tick emitted %q", got)
	}
	again := s.ApplyBatch([]Sample{{PositionMs: 100}}, nil)
	if len(again.Emitted) != 0 {
		t.Fatalf("re-tick at the same position emitted %q", ids(again.Emitted))
	}
}

func TestCommentAtZeroIsBehindStartBoundary(t *testing.T) {
	s := newTestSession(commentsAt(0, 0, 10))
	if s.Cursor() != 2 {
		t.Fatalf("cursor = %d, want 2", s.Cursor())
	}
	res := s.ApplyBatch([]Sample{{PositionMs: 50}}, nil)
	if got := ids(res.Emitted); got != "10" {
		t.Fatalf("emitted %q, want 10", got)
	}
}

func TestBatchSplittingInvariance(t *testing.T) {
	comments := commentsAt(5, 40, 40, 99, 100, 101, 250, 600, 999, 1000, 1001)
	hider := hideUsers{"u1": true}

	splits := [][]int64{
		{1000},
		{500, 1000},
		{1, 2, 3, 1000},
		{40, 40, 100, 101, 250, 999, 1000},
	}

	var want string
	{
		var expected []models.CommentEvent
		for _, c := range newTestSession(comments).comments {
			if c.AtMs > 0 && c.AtMs <= 1000 && !hider.ShouldHide(&c) {
				expected = append(expected, c)
			}
		}
		want = ids(expected)
	}

	for _, split := range splits {
		t.Run(fmt.Sprint(split), func(t *testing.T) {
			// one sample per tick
			s := newTestSession(comments)
			var got []models.CommentEvent
			for _, pos := range split {
				got = append(got, s.ApplyBatch([]Sample{{PositionMs: pos}}, hider).Emitted...)
			}
			if ids(got) != want {
				t.Fatalf("per-tick union %q, want %q", ids(got), want)
			}

			// whole split as one batch
			samples := make([]Sample, len(split))
			for i, pos := range split {
				samples[i] = Sample{PositionMs: pos}
			}
			batch := newTestSession(comments).ApplyBatch(samples, hider)
			if ids(batch.Emitted) != want {
				t.Fatalf("batched union %q, want %q", ids(batch.Emitted), want)
			}
			if batch.SamplesProcessed != len(split) || batch.FinalPositionMs != 1000 {
				t.Fatalf("unexpected batch result %+v", batch)
			}
		})
	}
}

func TestSeekNeverReemitsEarlierComments(t *testing.T) {
	comments := commentsAt(100, 200, 300, 400, 500)

	cases := []struct {
		name    string
		samples []Sample
		want    string
	}{
		{"explicit seek forward", []Sample{{PositionMs: 300, IsSeek: true}, {PositionMs: 450}}, "400"},
		{"rewind", []Sample{{PositionMs: 450}, {PositionMs: 200}, {PositionMs: 350}}, "100,200,300,400,300"},
		{"seek back to start", []Sample{{PositionMs: 250}, {PositionMs: 0, IsSeek: true}, {PositionMs: 150}}, "100,200,100"},
		{"seek while paused", []Sample{{PositionMs: 300, IsSeek: true, Paused: true}, {PositionMs: 500}}, "400,500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := newTestSession(comments).ApplyBatch(tc.samples, nil)
			if got := ids(res.Emitted); got != tc.want {
				t.Fatalf("emitted %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSeekThenAdvanceSkipsEverythingUpToTarget(t *testing.T) {
	comments := commentsAt(10, 20, 30, 40, 50, 60, 70, 80, 90)
	for p := int64(0); p <= 90; p += 5 {
		s := newTestSession(comments)
		s.ApplyBatch([]Sample{{PositionMs: p, IsSeek: true}}, nil)
		res := s.ApplyBatch([]Sample{{PositionMs: 100}}, nil)
		for _, c := range res.Emitted {
			if c.AtMs <= p {
				t.Fatalf("seek to %d re-emitted comment at %d", p, c.AtMs)
			}
		}
	}
}

func TestPausedSamplesOnlyMovePosition(t *testing.T) {
	s := newTestSession(commentsAt(100, 200))

	res := s.ApplyBatch([]Sample{{PositionMs: 150, Paused: true}}, nil)
	if len(res.Emitted) != 0 {
		t.Fatalf("paused sample emitted %q", ids(res.Emitted))
	}
	if s.LastPositionMs() != 150 {
		t.Fatalf("last position = %d, want 150", s.LastPositionMs())
	}

	// the comment at 100 is now behind the window and stays unemitted
	res = s.ApplyBatch([]Sample{{PositionMs: 250}}, nil)
	if got := ids(res.Emitted); got != "200" {
		t.Fatalf("emitted %q, want 200", got)
	}
}

func TestHiddenCommentsStillAdvanceCursor(t *testing.T) {
	s := newTestSession(commentsAt(10, 20, 30))
	res := s.ApplyBatch([]Sample{{PositionMs: 30}}, hideUsers{"u0": true, "u1": true, "u2": true})
	if len(res.Emitted) != 0 {
		t.Fatalf("emitted %q, want nothing", ids(res.Emitted))
	}
	if s.Cursor() != 3 {
		t.Fatalf("cursor = %d, want 3", s.Cursor())
	}
}

func TestEmptyBatchReportsCurrentPosition(t *testing.T) {
	s := newTestSession(commentsAt(10))
	s.ApplyBatch([]Sample{{PositionMs: 42, Paused: true}}, nil)

	res := s.ApplyBatch(nil, nil)
	if res.SamplesProcessed != 0 || res.FinalPositionMs != 42 || len(res.Emitted) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}
