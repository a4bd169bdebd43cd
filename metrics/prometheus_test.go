// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/prometheus/client_model/go"
)

func TestPromMetrics(t *testing.T) {
	InitializePrometheusMetrics()
	_, ok := metrics.(*prometheusMetrics)
	require.True(t, ok)
	require.NotNil(t, HTTPHandler())

	count := Counter("count1")
	count.Add(3)
	count.Add(2)

	countVec := CounterVec("countVec1", []string{"op"})
	countVec.AddWithLabel(4, map[string]string{"op": "stake"})
	countVec.AddWithLabel(1, map[string]string{"op": "claim"})

	gauge := Gauge("gauge1")
	gauge.Set(7)
	gauge.Add(3)

	gaugeVec := GaugeVec("gaugeVec1", []string{"vault"})
	gaugeVec.SetWithLabel(11, map[string]string{"vault": "0"})

	histVec := HistogramVec("histVec1", []string{"code"}, BucketHTTPReqs)
	histVec.ObserveWithLabels(5, map[string]string{"code": "200"})
	histVec.ObserveWithLabels(50, map[string]string{"code": "200"})

	// the same name resolves to the same collector
	Counter("count1").Add(1)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily)
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	counterFam := byName["nuo_staking_count1"]
	require.NotNil(t, counterFam)
	assert.Equal(t, float64(6), counterFam.GetMetric()[0].GetCounter().GetValue())

	counterVecFam := byName["nuo_staking_countVec1"]
	require.NotNil(t, counterVecFam)
	var total float64
	for _, m := range counterVecFam.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	assert.Equal(t, float64(5), total)

	gaugeFam := byName["nuo_staking_gauge1"]
	require.NotNil(t, gaugeFam)
	assert.Equal(t, float64(10), gaugeFam.GetMetric()[0].GetGauge().GetValue())

	gaugeVecFam := byName["nuo_staking_gaugeVec1"]
	require.NotNil(t, gaugeVecFam)
	assert.Equal(t, float64(11), gaugeVecFam.GetMetric()[0].GetGauge().GetValue())

	histFam := byName["nuo_staking_histVec1"]
	require.NotNil(t, histFam)
	hist := histFam.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.Equal(t, float64(55), hist.GetSampleSum())
}
