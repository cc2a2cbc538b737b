package staging

import (
	"io"
	"strings"
	"testing"
)

func TestLocalSpool_StageAndOpen(t *testing.T) {
	spool, err := NewLocalSpool(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create spool: %v", err)
	}

	info, err := spool.Stage("sess-1", "doc.pdf", strings.NewReader("%PDF-1.4 content"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Name != "doc.pdf" {
		t.Errorf("expected name doc.pdf, got %s", info.Name)
	}
	if info.Size != int64(len("%PDF-1.4 content")) {
		t.Errorf("unexpected size: %d", info.Size)
	}
	if info.ID == "" {
		t.Error("expected non-empty ID")
	}

	pending, ok := spool.Pending("sess-1")
	if !ok {
		t.Fatal("expected pending upload")
	}
	if pending.ID != info.ID {
		t.Errorf("pending ID mismatch: %s != %s", pending.ID, info.ID)
	}

	r, openInfo, err := spool.Open("sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read spooled file: %v", err)
	}
	if string(data) != "%PDF-1.4 content" {
		t.Errorf("unexpected content: %q", data)
	}
	if openInfo.Name != "doc.pdf" {
		t.Errorf("unexpected name from Open: %s", openInfo.Name)
	}
}

func TestLocalSpool_StageReplaces(t *testing.T) {
	spool, err := NewLocalSpool(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create spool: %v", err)
	}

	first, _ := spool.Stage("sess-1", "first.pdf", strings.NewReader("first"))
	second, err := spool.Stage("sess-1", "second.pdf", strings.NewReader("second"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID == second.ID {
		t.Error("expected a fresh ID for the replacement")
	}

	pending, ok := spool.Pending("sess-1")
	if !ok || pending.Name != "second.pdf" {
		t.Fatalf("expected second.pdf staged, got %+v", pending)
	}

	r, _, err := spool.Open("sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "second" {
		t.Errorf("expected replacement content, got %q", data)
	}
}

func TestLocalSpool_SessionsIsolated(t *testing.T) {
	spool, err := NewLocalSpool(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create spool: %v", err)
	}

	spool.Stage("sess-1", "a.pdf", strings.NewReader("a"))
	spool.Stage("sess-2", "b.pdf", strings.NewReader("b"))

	if err := spool.Clear("sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := spool.Pending("sess-1"); ok {
		t.Error("sess-1 pending should be cleared")
	}
	if pending, ok := spool.Pending("sess-2"); !ok || pending.Name != "b.pdf" {
		t.Error("sess-2 pending should be untouched")
	}
}

func TestLocalSpool_ClearIsIdempotent(t *testing.T) {
	spool, err := NewLocalSpool(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create spool: %v", err)
	}

	if err := spool.Clear("never-staged"); err != nil {
		t.Errorf("clearing an empty session should be a no-op, got %v", err)
	}

	spool.Stage("sess-1", "a.pdf", strings.NewReader("a"))
	if err := spool.Clear("sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := spool.Clear("sess-1"); err != nil {
		t.Errorf("second clear should be a no-op, got %v", err)
	}
}

func TestLocalSpool_OpenWithoutStage(t *testing.T) {
	spool, err := NewLocalSpool(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create spool: %v", err)
	}

	if _, _, err := spool.Open("sess-1"); err == nil {
		t.Error("expected error opening with nothing staged")
	}
}
