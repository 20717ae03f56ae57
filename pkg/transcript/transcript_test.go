package transcript

import (
	"context"
	"testing"
	"time"

	"github.com/anvilide/core/pkg/classify"
)

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "terminal_abc")
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	events := []classify.Event{
		{Kind: classify.KindTask, Message: "> Task :app:assembleDebug"},
		{Kind: classify.KindError, Message: "error[E0308]: mismatched types"},
		{Kind: classify.KindSuccess, Message: "BUILD SUCCESSFUL in 4s"},
	}
	for _, ev := range events {
		if err := w.Record(ev); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := Read(w.Path())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("Read() = %d events, want %d", len(got), len(events))
	}
	for i, ev := range events {
		if got[i].Kind != ev.Kind || got[i].Message != ev.Message {
			t.Errorf("event[%d] = %+v, want %+v", i, got[i], ev)
		}
	}
}

func TestRecordAfterClose(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "s")
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	if err := w.Record(classify.Event{Kind: classify.KindInfo, Message: "late"}); err == nil {
		t.Error("Record() after Close succeeded, want error")
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line     string
		wantKind classify.Kind
		wantMsg  string
	}{
		{"ERROR: something broke", classify.KindError, "something broke"},
		{"INFO: plain line", classify.KindInfo, "plain line"},
		{"no prefix at all", classify.KindInfo, "no prefix at all"},
		{"NOTAKIND: stays whole", classify.KindInfo, "NOTAKIND: stays whole"},
	}
	for _, tt := range tests {
		got := ParseLine(tt.line)
		if got.Kind != tt.wantKind || got.Message != tt.wantMsg {
			t.Errorf("ParseLine(%q) = %v %q, want %v %q", tt.line, got.Kind, got.Message, tt.wantKind, tt.wantMsg)
		}
	}
}

func TestFollowStreamsAppends(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "live")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	w.Record(classify.Event{Kind: classify.KindInfo, Message: "first"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := Follow(ctx, w.Path())
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	select {
	case ev := <-events:
		if ev.Message != "first" {
			t.Errorf("replayed = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no replayed event")
	}

	w.Record(classify.Event{Kind: classify.KindSuccess, Message: "second"})
	select {
	case ev := <-events:
		if ev.Kind != classify.KindSuccess || ev.Message != "second" {
			t.Errorf("live = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no live event")
	}
}
