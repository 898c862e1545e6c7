package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	salesapp "github.com/storeops/backend/internal/application/sales"
)

type fakeExpirer struct {
	calls   atomic.Int32
	block   chan struct{}
	started chan struct{}
	err     error
}

func (f *fakeExpirer) ExpireOverdueQuotes(ctx context.Context) (*salesapp.ExpirySweepResult, error) {
	n := f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &salesapp.ExpirySweepResult{Scanned: int(n), Expired: int(n)}, nil
}

func TestQuoteExpiryJobConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  QuoteExpiryJobConfig
		wantErr bool
	}{
		{"default", DefaultQuoteExpiryJobConfig(), false},
		{"zero interval", QuoteExpiryJobConfig{Timeout: time.Second}, true},
		{"zero timeout", QuoteExpiryJobConfig{Interval: time.Minute}, true},
		{"timeout beyond interval", QuoteExpiryJobConfig{Interval: time.Minute, Timeout: 2 * time.Minute}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteExpiryJob_StartStop(t *testing.T) {
	expirer := &fakeExpirer{}
	job, err := NewQuoteExpiryJob(QuoteExpiryJobConfig{
		Interval:   20 * time.Millisecond,
		Timeout:    10 * time.Millisecond,
		RunOnStart: true,
	}, expirer, nil)
	require.NoError(t, err)

	require.NoError(t, job.Start(context.Background()))
	require.NoError(t, job.Start(context.Background()), "second start is a no-op")
	assert.True(t, job.IsRunning())

	assert.Eventually(t, func() bool { return expirer.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, job.Stop(ctx))
	assert.False(t, job.IsRunning())

	stopped := expirer.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stopped, expirer.calls.Load(), "no sweeps after Stop")

	last, lastErr := job.LastResult()
	require.NoError(t, lastErr)
	require.NotNil(t, last)
	assert.Positive(t, last.Expired)

	require.NoError(t, job.Stop(ctx), "second stop is a no-op")
}

func TestQuoteExpiryJob_RunOnceRejectsOverlap(t *testing.T) {
	expirer := &fakeExpirer{block: make(chan struct{}), started: make(chan struct{}, 1)}
	job, err := NewQuoteExpiryJob(QuoteExpiryJobConfig{Interval: time.Hour, Timeout: time.Minute}, expirer, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := job.RunOnce(context.Background())
		done <- err
	}()
	<-expirer.started

	_, err = job.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(expirer.block)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), expirer.calls.Load())
}

func TestQuoteExpiryJob_RecordsFailure(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("database unavailable")}
	job, err := NewQuoteExpiryJob(QuoteExpiryJobConfig{Interval: time.Hour, Timeout: time.Minute}, expirer, nil)
	require.NoError(t, err)

	_, err = job.RunOnce(context.Background())
	require.Error(t, err)

	last, lastErr := job.LastResult()
	assert.Nil(t, last)
	assert.EqualError(t, lastErr, "database unavailable")
}

func TestQuoteExpiryJob_TimeoutBoundsSweep(t *testing.T) {
	expirer := &fakeExpirer{block: make(chan struct{})}
	job, err := NewQuoteExpiryJob(QuoteExpiryJobConfig{Interval: time.Second, Timeout: 20 * time.Millisecond}, expirer, nil)
	require.NoError(t, err)

	_, err = job.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
