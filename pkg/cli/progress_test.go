package cli

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock advances by step on every call.
func fakeClock(step time.Duration) func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestProgress_Lifecycle(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(buf, "Importing", "records")
	p.now = fakeClock(time.Second)

	p.Start(200)
	p.Add(100)
	p.Done()

	out := buf.String()
	for _, want := range []string{"Importing [", " 50% 100/200 records", "100% 200/200 records"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Done() should end the line")
	}
}

func TestProgress_Throttles(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(buf, "Importing", "records")
	p.now = fakeClock(time.Millisecond)

	p.Start(1000)
	for i := 0; i < 10; i++ {
		p.Add(1)
	}
	if n := strings.Count(buf.String(), "\r"); n != 1 {
		t.Errorf("drew %d times within the interval, want only the initial draw", n)
	}

	p.Add(990)
	if !strings.Contains(buf.String(), "1000/1000") {
		t.Errorf("reaching the total must always draw: %q", buf.String())
	}
}

func TestProgress_ClampsToTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(buf, "Importing", "records")

	p.Start(10)
	p.Add(25)
	p.Add(-3)

	if strings.Contains(buf.String(), "25/10") {
		t.Errorf("count exceeded the total: %q", buf.String())
	}
	if p.done != 10 {
		t.Errorf("done = %d, want 10", p.done)
	}
}

func TestProgress_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(buf, "Importing", "")

	p.Start(0)
	p.Add(1)
	p.Done()

	if buf.Len() != 0 {
		t.Errorf("nothing to report, got %q", buf.String())
	}
}

func TestProgress_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(buf, "Importing", "records")

	p.Start(100)
	p.Add(40)
	p.Fail(errors.New("disk full"))
	before := buf.Len()
	p.Add(10)
	p.Done()

	if !strings.Contains(buf.String(), "Importing stopped at 40/100 records: disk full") {
		t.Errorf("output = %q", buf.String())
	}
	if buf.Len() != before {
		t.Error("updates after Fail() should be ignored")
	}
}

func TestProgress_Concurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(buf, "Importing", "records")
	p.Start(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Add(1)
			}
		}()
	}
	wg.Wait()
	p.Done()

	if p.done != 1000 {
		t.Errorf("done = %d, want 1000", p.done)
	}
}
