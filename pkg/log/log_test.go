// Copyright 2026 protomut project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package log

import (
	"bytes"
	golog "log"
	"os"
	"testing"
)

func TestVerbosity(t *testing.T) {
	buf := new(bytes.Buffer)
	golog.SetOutput(buf)
	golog.SetFlags(0)
	defer golog.SetOutput(os.Stderr)
	old := *flagV
	*flagV = 1
	defer func() { *flagV = old }()
	Logf(0, "zero %v", 0)
	Logf(1, "one %v", 1)
	Logf(2, "two %v", 2)
	Errorf("bad %v", 3)
	if V(2) || !V(1) {
		t.Fatalf("bad V: V(1)=%v V(2)=%v", V(1), V(2))
	}
	if got, want := buf.String(), "zero 0\none 1\nerror: bad 3\n"; got != want {
		t.Fatalf("got:\n%q\nwant:\n%q", got, want)
	}
}
