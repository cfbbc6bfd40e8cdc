package ui

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer written by the spinner goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerLifecycle(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, SpinnerOptions{Message: "Compiling", NoColor: true, Interval: time.Millisecond})

	s.Start()
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.UpdateMessage("Linking")
	time.Sleep(20 * time.Millisecond)
	s.Success("Compiled")
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Compiling") {
		t.Errorf("expected spinner message in output: %q", out)
	}
	if !strings.HasSuffix(out, "✓ Compiled\n") {
		t.Errorf("expected success line at the end: %q", out)
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, SpinnerOptions{NoColor: true})
	s.Stop()
	if buf.String() != "" {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestWithSpinner(t *testing.T) {
	var buf syncBuffer
	err := WithSpinner(&buf, "Uploading", true, func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "✓ Uploading") {
		t.Errorf("expected success output, got %q", buf.String())
	}

	var failed syncBuffer
	want := errors.New("port busy")
	err = WithSpinner(&failed, "Uploading", true, func() error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if !strings.Contains(failed.String(), "❌ Uploading failed") {
		t.Errorf("expected failure output, got %q", failed.String())
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, ProgressBarOptions{Total: 2, Width: 4, Message: "Classifying", NoColor: true})

	bar.Step("index.html")
	if !strings.Contains(buf.String(), "[██░░] 1/2 Classifying index.html") {
		t.Errorf("unexpected render %q", buf.String())
	}

	bar.Step("index.js")
	bar.Step("extra")
	if bar.Current() != 2 {
		t.Errorf("expected progress to stop at total, got %d", bar.Current())
	}

	bar.Finish()
	if !strings.HasSuffix(buf.String(), "[████] 2/2 Classifying\x1b[K\n") {
		t.Errorf("unexpected final render %q", buf.String())
	}
}

func TestProgressBarConcurrentSteps(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, ProgressBarOptions{Total: 50, NoColor: true})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bar.Step("f")
		}()
	}
	wg.Wait()

	if bar.Current() != 50 {
		t.Errorf("expected 50 steps, got %d", bar.Current())
	}
}

func TestWithProgress(t *testing.T) {
	var buf bytes.Buffer
	err := WithProgress(&buf, "Classifying", 1, true, func(bar *ProgressBar) error {
		bar.Step("a")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Errorf("expected trailing newline, got %q", buf.String())
	}

	want := errors.New("boom")
	if err := WithProgress(&buf, "x", 1, true, func(*ProgressBar) error { return want }); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}
