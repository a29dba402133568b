/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logging

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/crewjam/rfc5424"
)

var tempdir string

func TestMain(m *testing.M) {
	var err error
	if tempdir, err = ioutil.TempDir(os.TempDir(), ``); err != nil {
		fmt.Println("Failed to create temp dir", err)
		os.Exit(-1)
	}
	r := m.Run()
	os.RemoveAll(tempdir)
	os.Exit(r)
}

func newLogger(t *testing.T) (*Logger, string) {
	t.Helper()
	p := filepath.Join(tempdir, t.Name()+".log")
	fout, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	return New(fout), p
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	bts, err := ioutil.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	return string(bts)
}

func TestLevelsFiltered(t *testing.T) {
	lgr, p := newLogger(t)
	lgr.lvl = WARN

	if err := lgr.Debug("debug line"); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Info("info line"); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Warn("warn line"); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Error("error line", KV("id", 99)); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Close(); err != nil {
		t.Fatal(err)
	}

	s := readFile(t, p)
	if strings.Contains(s, "debug line") || strings.Contains(s, "info line") {
		t.Fatalf("level filter let a below-threshold line through:\n%s", s)
	}
	if !strings.Contains(s, "warn line") || !strings.Contains(s, "error line") {
		t.Fatalf("missing expected lines:\n%s", s)
	}
	if !strings.Contains(s, `id="99"`) {
		t.Fatalf("missing structured field:\n%s", s)
	}
}

func TestCycleOverrun(t *testing.T) {
	lgr, p := newLogger(t)
	if err := lgr.CycleOverrun(time.Millisecond, 3*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Close(); err != nil {
		t.Fatal(err)
	}
	s := readFile(t, p)
	if !strings.Contains(s, "cycle overrun") {
		t.Fatalf("missing cycle overrun line: %s", s)
	}
	if !strings.Contains(s, `overBy="2ms"`) {
		t.Fatalf("missing overBy field: %s", s)
	}
}

type kindedErr struct{ kind string }

func (e kindedErr) Error() string     { return "boom: " + e.kind }
func (e kindedErr) ErrorKind() string { return e.kind }

func TestKVErrKind(t *testing.T) {
	sds := KVErrKind(kindedErr{kind: "MasterBusy"})
	if len(sds) != 2 {
		t.Fatalf("expected error and errorKind fields, got %d", len(sds))
	}
	var sawKind bool
	for _, sd := range sds {
		if sd.Name == "errorKind" && sd.Value == "MasterBusy" {
			sawKind = true
		}
	}
	if !sawKind {
		t.Fatalf("errorKind field missing or wrong: %+v", sds)
	}

	// A plain error (no ErrorKind method) should only produce the
	// error field.
	plain := KVErrKind(fmt.Errorf("plain failure"))
	if len(plain) != 1 {
		t.Fatalf("expected only the error field for a plain error, got %d", len(plain))
	}
}

func TestDriveLoggerScopesFields(t *testing.T) {
	lgr, p := newLogger(t)
	dl := NewDriveLogger(lgr, 3)
	dl.AddKV(KV("vendor", 0x1234))

	if err := dl.Warn("sdo fallback write", KV("object", "6040")); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Close(); err != nil {
		t.Fatal(err)
	}
	s := readFile(t, p)
	if !strings.Contains(s, `drive="3"`) {
		t.Fatalf("missing drive field: %s", s)
	}
	if !strings.Contains(s, `vendor="4660"`) {
		t.Fatalf("missing appended KV field: %s", s)
	}
	if !strings.Contains(s, `object="6040"`) {
		t.Fatalf("missing call-site field: %s", s)
	}
}

func TestMultipleWritersAndRelays(t *testing.T) {
	lgr, p := newLogger(t)

	var relayed []string
	lgr.AddRelay(relayFunc(func(lvl Level, ts time.Time, line []byte) error {
		if lvl >= ERROR {
			relayed = append(relayed, string(line))
		}
		return nil
	}))

	if err := lgr.Warn("warn only goes to writer"); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Error("error goes everywhere"); err != nil {
		t.Fatal(err)
	}
	if err := lgr.Close(); err != nil {
		t.Fatal(err)
	}

	if len(relayed) != 1 || !strings.Contains(relayed[0], "error goes everywhere") {
		t.Fatalf("relay did not receive exactly the ERROR+ line: %v", relayed)
	}
	s := readFile(t, p)
	if !strings.Contains(s, "warn only goes to writer") || !strings.Contains(s, "error goes everywhere") {
		t.Fatalf("writer missing expected lines: %s", s)
	}
}

type relayFunc func(lvl Level, ts time.Time, line []byte) error

func (f relayFunc) WriteLog(lvl Level, ts time.Time, line []byte) error {
	return f(lvl, ts, line)
}

func TestTrimLength(t *testing.T) {
	if out := trimLength(10, "twelve bytes"); out != "twelve byt" {
		t.Fatal("trimLength", out)
	}
}

func TestTrimPathLength(t *testing.T) {
	if out := trimPathLength(32, "netconfig/drive.go:355"); out != "drive.go:355" {
		t.Fatal("trimPathLength", out)
	}
}

func TestTrimPathLengthBaseTooLong(t *testing.T) {
	input := "netconfig/wayTooManyBytesInThisFilenameWhoDidThis.go:355"
	output := trimPathLength(32, input)
	if output != "sInThisFilenameWhoDidThis.go:355" {
		t.Fatal("trimPathLength", output)
	}
}

func TestGenRFCMessageTrimsHostname(t *testing.T) {
	hostname := strings.Repeat("h", 300)
	b, err := GenRFCMessage(time.Now(), rfc5424.User|rfc5424.Info, hostname, "app", "loc", "msg")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), strings.Repeat("h", maxHostname+1)) {
		t.Fatalf("hostname field was not trimmed to %d bytes", maxHostname)
	}
}
