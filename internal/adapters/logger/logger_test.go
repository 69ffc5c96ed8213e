package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/voo/internal/adapters/logger"
	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestLogger_VerbosityGating(t *testing.T) {
	l := logger.New()
	var out bytes.Buffer
	l.SetOutput(&out)

	l.Debug("hidden")
	l.Info("also hidden")
	l.Warn("visible")
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "visible")

	out.Reset()
	l.SetVerbosity(domain.VerbosityVerbose)
	l.Debug("now visible")
	assert.Contains(t, out.String(), "now visible")
}

func TestLogger_ErrorFlattensChain(t *testing.T) {
	l := logger.New()
	var out bytes.Buffer
	l.SetOutput(&out)

	err := zerr.Wrap(domain.ErrTruncatedRecord, "loading record failed")
	l.Error(err)

	assert.Contains(t, out.String(), "loading record failed")
	assert.Contains(t, out.String(), domain.ErrTruncatedRecord.Error())
}

func TestPrettyHandler_FormatsLevels(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	l := logger.New()
	var out bytes.Buffer
	l.SetOutput(&out)

	l.Warn("disk almost full")
	assert.Contains(t, out.String(), "! disk almost full")

	out.Reset()
	l.Error(domain.ErrTruncatedRecord)
	assert.Contains(t, out.String(), "✗ "+domain.ErrTruncatedRecord.Error())
}

func TestPrettyHandler_FormatsAttrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var out bytes.Buffer
	h := logger.NewPrettyHandler(&out, nil)

	slog.New(h).With("path", "/tmp/x").Warn("unreadable")
	assert.Contains(t, out.String(), "! unreadable path=/tmp/x")
}

func TestLogger_NilErrorIsSilent(t *testing.T) {
	l := logger.New()
	var out bytes.Buffer
	l.SetOutput(&out)

	l.Error(nil)
	assert.Empty(t, out.String())
}
