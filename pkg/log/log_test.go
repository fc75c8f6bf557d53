// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := &Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	expected := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if diff := cmp.Diff(expected, tw.lines); diff != "" {
		t.Errorf("Writer output mismatch (-want +got):\n%s", diff)
	}
}

func TestTextEmitter(t *testing.T) {
	var buf bytes.Buffer
	l := &BasicLogger{Level: Info, Emitter: TextEmitter{&Writer{Next: &buf}}}
	l.Infof("hello %d", 1)
	l.Debugf("not logged")
	l.Warningf("careful")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), lines)
	}
	re := regexp.MustCompile(`^[IW]\d{4} \d{2}:\d{2}:\d{2}\.\d{6} +\d+ log_test\.go:\d+\] (.*)$`)
	for i, want := range []string{"hello 1", "careful"} {
		m := re.FindStringSubmatch(lines[i])
		if m == nil {
			t.Errorf("line %q does not match %v", lines[i], re)
			continue
		}
		if m[1] != want {
			t.Errorf("message = %q, want %q", m[1], want)
		}
	}
	if lines[1][0] != 'W' {
		t.Errorf("warning line starts with %q, want W", lines[1][0])
	}
}

func TestSetLevel(t *testing.T) {
	l := &BasicLogger{Level: Warning, Emitter: &TestEmitter{t}}
	if l.IsLogging(Info) {
		t.Errorf("IsLogging(Info) = true at level Warning")
	}
	l.SetLevel(Debug)
	for _, lv := range []Level{Warning, Info, Debug} {
		if !l.IsLogging(lv) {
			t.Errorf("IsLogging(%v) = false at level Debug", lv)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Level
	}{
		{"warning", Warning},
		{"Info", Info},
		{"2", Debug},
	} {
		got, err := ParseLevel(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, %v, want %v", tc.in, got, err, tc.want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Errorf("ParseLevel(loud) succeeded")
	}
}

func TestMultiEmitter(t *testing.T) {
	var a, b bytes.Buffer
	m := MultiEmitter{&Writer{Next: &a}, &Writer{Next: &b}}
	l := &BasicLogger{Level: Info, Emitter: &m}
	l.Infof("both")
	if a.String() != "both\n" || b.String() != "both\n" {
		t.Errorf("got %q and %q, want both\\n twice", a.String(), b.String())
	}
}

func TestRateLimited(t *testing.T) {
	var buf bytes.Buffer
	base := &BasicLogger{Level: Info, Emitter: &Writer{Next: &buf}}
	rl := RateLimitedLogger(base, time.Hour, 2)
	for i := 0; i < 5; i++ {
		rl.Warningf("message %d", i)
	}
	rl.Debugf("below level")
	if got, want := buf.String(), "message 0\nmessage 1\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if got := rl.Suppressed(); got != 3 {
		t.Errorf("Suppressed() = %d, want 3", got)
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	p := FilePattern{Command: "cell", Start: time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC)}
	pattern := filepath.Join(dir, "logs", "lfstress.%COMMAND%.%TIMESTAMP%.log")
	f, err := OpenFile(pattern, p)
	if err != nil {
		t.Fatalf("OpenFile(%q) = %v", pattern, err)
	}
	defer f.Close()
	want := filepath.Join(dir, "logs", "lfstress.cell.20260102-030405.000006.log")
	if f.Name() != want {
		t.Errorf("file name = %q, want %q", f.Name(), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("Stat(%q) = %v", want, err)
	}

	if f, err := OpenFile("", p); f != nil || err != nil {
		t.Errorf("OpenFile(\"\") = %v, %v, want nil, nil", f, err)
	}
}

func TestEmitterFor(t *testing.T) {
	w := &Writer{Next: &bytes.Buffer{}}
	for _, format := range []string{"text", "json"} {
		if _, err := EmitterFor(format, w); err != nil {
			t.Errorf("EmitterFor(%q) = %v", format, err)
		}
	}
	if _, err := EmitterFor("xml", w); err == nil {
		t.Errorf("EmitterFor(xml) succeeded")
	}
}
