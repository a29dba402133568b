//go:build windows
// +build windows

/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logging

import "errors"

// fd-level stderr redirection relies on syscall.Dup3, which has no
// Windows equivalent; this fieldbus manager only ever runs its cyclic
// worker against a Linux real-time kernel, so this is a stub rather
// than a port.
func newStderrLogger(fileOverride string, cb StderrCallback) (lgr *Logger, err error) {
	err = errors.New("stderr logger not available on windows")
	return
}
