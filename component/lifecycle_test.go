package component

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonwadsworth/aws-account-name/errors"
)

type fakeComponent struct {
	name    string
	initErr error
	started bool
	stopped bool
	order   *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Initialize() error { return f.initErr }

func (f *fakeComponent) Start(context.Context) error {
	f.started = true
	*f.order = append(*f.order, "start:"+f.name)
	return nil
}

func (f *fakeComponent) Stop(time.Duration) error {
	f.stopped = true
	*f.order = append(*f.order, "stop:"+f.name)
	return nil
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "started", StateStarted.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestRunner_StartAndStopInReverseOrder(t *testing.T) {
	var order []string
	a := &fakeComponent{name: "a", order: &order}
	b := &fakeComponent{name: "b", order: &order}

	r := NewRunner(NewLogger("runner", nil, nil), a, b)
	require.NoError(t, r.Start(context.Background()))
	r.Stop(time.Second)

	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, order)
}

func TestRunner_InitFailureStopsAlreadyStarted(t *testing.T) {
	var order []string
	a := &fakeComponent{name: "a", order: &order}
	b := &fakeComponent{name: "b", order: &order, initErr: errors.New("bad config")}

	r := NewRunner(NewLogger("runner", nil, nil), a, b)
	err := r.Start(context.Background())

	require.Error(t, err)
	assert.True(t, a.started)
	assert.True(t, a.stopped)
	assert.False(t, b.started)
}

func TestLogger_NilReceiverIsSafe(t *testing.T) {
	var l *Logger
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e", errors.New("boom"))
	assert.NotNil(t, l.Slog())
}
