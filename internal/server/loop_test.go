package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampDT(t *testing.T) {
	interval := 100 * time.Millisecond
	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"on time", interval, 0.1},
		{"late", 250 * time.Millisecond, 0.25},
		{"stalled", 10 * time.Second, 0.5},
		{"clock went back", -time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ClampDT(tt.elapsed, interval, 5), 1e-9)
		})
	}
}

func TestLoopRun(t *testing.T) {
	steps := make(chan float64, 64)
	loop := NewLoop(5*time.Millisecond, 3, func(dt float64) {
		select {
		case steps <- dt:
		default:
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, loop.Run(ctx))

	close(steps)
	count := 0
	for dt := range steps {
		count++
		assert.LessOrEqual(t, dt, 0.015+1e-9)
	}
	assert.Positive(t, count)
}
