//go:build linux
// +build linux

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
	"io"
	"os"
	"syscall"
	"time"
)

// newStderrLogger builds the process-wide logger: every level is
// written to os.Stderr. When fileOverride is set, stderr's underlying
// fd is dup3'd onto fileOverride first, so the same writes land in the
// file instead — and a critStderrRelay is wired on to mirror ERROR+
// lines back onto the real, pre-redirect stderr fd, since a stuck
// real-time worker may have nobody tailing its log file.
func newStderrLogger(fileOverride string, cb StderrCallback) (lgr *Logger, err error) {
	lgr = New(os.Stderr)
	if len(fileOverride) == 0 {
		return
	}

	fout, ferr := os.Create(fileOverride)
	if ferr != nil {
		err = ferr
		return
	}
	if cb != nil {
		cb(fout)
	}

	oldstderr, derr := syscall.Dup(int(os.Stderr.Fd()))
	if derr != nil {
		fout.Close()
		err = derr
		return
	}
	realStderr := os.NewFile(uintptr(oldstderr), "oldstderr")

	if err = syscall.Dup3(int(fout.Fd()), int(os.Stderr.Fd()), 0); err != nil {
		fout.Close()
		realStderr.Close()
		return
	}
	lgr.AddRelay(critStderrRelay{raw: realStderr})
	return
}

// critStderrRelay is a Relay that forwards only ERROR+ lines, onto the
// real stderr fd captured before it was redirected to a file.
type critStderrRelay struct {
	raw io.WriteCloser
}

func (c critStderrRelay) WriteLog(lvl Level, ts time.Time, line []byte) (err error) {
	if lvl < ERROR {
		return
	}
	_, err = fmt.Fprintf(c.raw, "%s\n", line)
	return
}

func (c critStderrRelay) Close() error {
	return c.raw.Close()
}
