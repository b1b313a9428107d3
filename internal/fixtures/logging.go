package fixtures

import (
	"testing"

	"github.com/sirupsen/logrus"
)

// tbWriter routes log output through the test it belongs to, so lines from
// parallel tests stay attributed.
type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Log(string(p))
	return len(p), nil
}

// NewTestLogger returns a debug-level logger writing through tb.
func NewTestLogger(tb testing.TB) logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(tbWriter{tb: tb})
	return l
}
