package configstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"sheetpipe/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeRaw(s *Store, name, raw string) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(raw), 0o644)
}

/*
TestWatch_DeliversReload: a save after the watch starts delivers the new
pipeline; canceling the context closes the channel.
*/
func TestWatch_DeliversReload(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save("w.json", config.Default()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.Watch(ctx, "w.json", 10*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	p := config.Default()
	p.Job = "reloaded"
	if err := s.Save("w.json", p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	select {
	case got, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before delivery")
		}
		if got.Job != "reloaded" {
			t.Fatalf("job = %q; want reloaded", got.Job)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload delivered")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel still open after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

/*
TestWatch_SkipsBrokenDocument: a torn write is skipped without closing the
stream; the following good save still arrives.
*/
func TestWatch_SkipsBrokenDocument(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save("w.json", config.Default()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.Watch(ctx, "w.json", 10*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := writeRaw(s, "w.json", "{broken"); err != nil {
		t.Fatal(err)
	}
	// Give the skipped reload time to happen before the good one.
	time.Sleep(100 * time.Millisecond)

	p := config.Default()
	p.Job = "fixed"
	if err := s.Save("w.json", p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	select {
	case got := <-ch:
		if got.Job != "fixed" {
			t.Fatalf("job = %q; want fixed", got.Job)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload delivered")
	}
}

func TestWatch_RejectsBadName(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Watch(context.Background(), "w.yaml", 0, nil); !errors.Is(err, ErrNotJSON) {
		t.Fatalf("err = %v; want ErrNotJSON", err)
	}
}
