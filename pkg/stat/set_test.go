// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	s := newSet(nil)
	assert.Empty(t, s.Collect(All))

	runs := s.New("runs", "subject runs", Console, Rate{})
	timeouts := s.New("timeouts", "subject timeouts")
	ext := 0
	s.New("ext", "external value", func() int { return ext })

	runs.Add(5)
	runs.Add(10)
	timeouts.Add(1)
	ext = 7

	assert.Equal(t, 15, runs.Val())
	assert.Equal(t, 1, timeouts.Val())

	ui := s.Collect(All)
	require.Len(t, ui, 3)
	assert.Equal(t, "runs", ui[0].Name)
	assert.Equal(t, Console, ui[0].Level)
	assert.Equal(t, 15, ui[0].V)
	assert.Equal(t, "ext", ui[1].Name)
	assert.Equal(t, "7", ui[1].Value)
	assert.Equal(t, "timeouts", ui[2].Name)

	ui = s.Collect(Console)
	require.Len(t, ui, 1)
	assert.Equal(t, "runs", ui[0].Name)
}

func TestDistribution(t *testing.T) {
	s := newSet(nil)
	v := s.New("run time", "subject run time", Distribution{})
	assert.Equal(t, 0, v.Val())
	for i := 1; i <= 100; i++ {
		v.Add(i)
	}
	assert.Equal(t, 50, v.Val())
	assert.InDelta(t, 50, v.Quantile(0.5), 5)
	assert.InDelta(t, 90, v.Quantile(0.9), 5)
	ui := s.Collect(All)
	require.Len(t, ui, 1)
	assert.Contains(t, ui[0].Value, "50 (p50 ")
}

func TestExternalAdd(t *testing.T) {
	s := newSet(nil)
	v := s.New("ext", "", func() int { return 0 })
	assert.Panics(t, func() { v.Add(1) })
	assert.Panics(t, func() { v.Quantile(0.5) })
}

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newSet(reg)
	v := s.New("bug reports", "bug reports written", Prometheus("firmfuzz_bug_reports"))
	v.Add(3)
	count, err := testutil.GatherAndCount(reg, "firmfuzz_bug_reports")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, 3.0, families[0].GetMetric()[0].GetGauge().GetValue())
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "600 (10/sec)", formatRate(600, time.Minute))
	assert.Equal(t, "60 (60/min)", formatRate(60, time.Minute))
	assert.Equal(t, "1 (60/hour)", formatRate(1, time.Minute))
}
