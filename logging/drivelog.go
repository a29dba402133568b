package logging

import "github.com/crewjam/rfc5424"

// DriveLogger scopes every log line to one configured drive position,
// so a fault on slave 3 doesn't read like it came from slave 1 two
// lines up in an interleaved log stream. It wraps a *Logger and
// prepends a "drive" structured-data field, plus any caller-supplied
// fields, to every line it emits.
type DriveLogger struct {
	*Logger
	sds []rfc5424.SDParam
}

// NewDriveLogger scopes l to position. Additional sds are attached to
// every line the returned logger emits, ahead of any passed to the
// individual call.
func NewDriveLogger(l *Logger, position uint16, sds ...rfc5424.SDParam) *DriveLogger {
	base := append([]rfc5424.SDParam{KV("drive", position)}, sds...)
	return &DriveLogger{Logger: l, sds: base}
}

func (dl *DriveLogger) Debug(msg string, sds ...rfc5424.SDParam) error {
	return dl.outputStructured(DEFAULT_DEPTH+1, DEBUG, msg, append(dl.sds, sds...)...)
}

func (dl *DriveLogger) Info(msg string, sds ...rfc5424.SDParam) error {
	return dl.outputStructured(DEFAULT_DEPTH+1, INFO, msg, append(dl.sds, sds...)...)
}

func (dl *DriveLogger) Warn(msg string, sds ...rfc5424.SDParam) error {
	return dl.outputStructured(DEFAULT_DEPTH+1, WARN, msg, append(dl.sds, sds...)...)
}

func (dl *DriveLogger) Error(msg string, sds ...rfc5424.SDParam) error {
	return dl.outputStructured(DEFAULT_DEPTH+1, ERROR, msg, append(dl.sds, sds...)...)
}

func (dl *DriveLogger) Critical(msg string, sds ...rfc5424.SDParam) error {
	return dl.outputStructured(DEFAULT_DEPTH+1, CRITICAL, msg, append(dl.sds, sds...)...)
}

// AddKV attaches additional fields to every subsequent line this
// drive logger emits, e.g. once a drive's vendor/product becomes
// known after slave configuration.
func (dl *DriveLogger) AddKV(sds ...rfc5424.SDParam) {
	dl.sds = append(dl.sds, sds...)
}
