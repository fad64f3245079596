package goroutine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestRecoveryHandler_RunRecoversPanic(t *testing.T) {
	log := &recordingLogger{}
	rh := NewRecoveryHandler(log)

	assert.NotPanics(t, func() {
		rh.Run(func() { panic("boom") })
	})
	assert.Len(t, log.lines, 1)
	assert.Contains(t, log.lines[0], "boom")
}

func TestRecoveryHandler_SafeGoRunsFunction(t *testing.T) {
	rh := NewRecoveryHandler(&recordingLogger{})
	done := make(chan struct{})

	rh.SafeGo(func() { close(done) })
	<-done
}
