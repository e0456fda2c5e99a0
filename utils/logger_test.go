package utils

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func bufferLogger(lvl LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{level: lvl, inner: log.New(&buf, "", 0)}, &buf
}

func TestLogger_SetLevel(t *testing.T) {
	l, buf := bufferLogger(INFO)

	l.Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	l.SetLevel(DEBUG)
	l.Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "[DEBUG]")
	assert.Contains(t, buf.String(), "shown 2")

	buf.Reset()
	l.SetLevel(ParseLogLevel("error"))
	l.Warn("dropped")
	l.Error("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "[ERROR]")
}
