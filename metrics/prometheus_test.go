// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// #nosec G404
package metrics

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	dto "github.com/prometheus/client_model/go"
)

func TestPromMetrics(t *testing.T) {
	InitializePrometheusMetrics()

	count1 := Counter("count1")
	Counter("count2")
	countVect := CounterVec("countVec1", []string{"asset"})

	gauge1 := Gauge("gauge1")
	gaugeVec := GaugeVec("gaugeVec1", []string{"asset"})

	count1.Add(1)
	randCount2 := rand.N(100) + 1
	for range randCount2 {
		Counter("count2").Add(1)
	}

	totalCountVec := 0
	randCountVec := rand.N(100) + 2
	for i := range randCountVec {
		countVect.AddWithLabel(int64(i), map[string]string{"asset": strconv.Itoa(i % 2)})
		totalCountVec += i
	}

	totalHist := 0
	randHist := rand.N(100) + 2
	for i := range randHist {
		HistogramVec("hist1", []string{"asset"}, BucketHTTPReqs).
			ObserveWithLabels(int64(i), map[string]string{"asset": strconv.Itoa(i % 2)})
		totalHist += i
	}

	totalGaugeVec := 0
	randGaugeVec := rand.N(100) + 2
	for i := range randGaugeVec {
		gaugeVec.AddWithLabel(int64(i), map[string]string{"asset": strconv.Itoa(i % 2)})
		gauge1.Add(int64(i))
		totalGaugeVec += i
	}

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	metricFamilies, err := gatherers.Gather()
	require.NoError(t, err)

	families := make(map[string]*dto.MetricFamily)
	for _, mf := range metricFamilies {
		families[mf.GetName()] = mf
	}

	require.Equal(t, float64(1), families["stakemesh_count1"].Metric[0].GetCounter().GetValue())
	require.Equal(t, float64(randCount2), families["stakemesh_count2"].Metric[0].GetCounter().GetValue())

	sumCountVec := families["stakemesh_countVec1"].Metric[0].GetCounter().GetValue() +
		families["stakemesh_countVec1"].Metric[1].GetCounter().GetValue()
	require.Equal(t, float64(totalCountVec), sumCountVec)

	sumHistVec := families["stakemesh_hist1"].Metric[0].GetHistogram().GetSampleSum() +
		families["stakemesh_hist1"].Metric[1].GetHistogram().GetSampleSum()
	require.Equal(t, float64(totalHist), sumHistVec)

	require.Equal(t, float64(totalGaugeVec), families["stakemesh_gauge1"].Metric[0].GetGauge().GetValue())
	sumGaugeVec := families["stakemesh_gaugeVec1"].Metric[0].GetGauge().GetValue() +
		families["stakemesh_gaugeVec1"].Metric[1].GetGauge().GetValue()
	require.Equal(t, float64(totalGaugeVec), sumGaugeVec)
}

func TestLazyLoading(t *testing.T) {
	metrics = defaultNoopMetrics() // make sure it starts in the default state of noopMeter

	for _, a := range []any{
		Gauge("noopGauge"),
		GaugeVec("noopGauge", nil),
		Counter("noopCounter"),
		CounterVec("noopCounter", nil),
		HistogramVec("noopHist", nil, nil),
	} {
		require.IsType(t, &noopMeters{}, a)
	}

	lazyGauge := LazyLoadGauge("lazyGauge")
	lazyGaugeVec := LazyLoadGaugeVec("lazyGaugeVec", nil)
	lazyCounter := LazyLoadCounter("lazyCounter")
	lazyCounterVec := LazyLoadCounterVec("lazyCounterVec", nil)
	lazyHistogramVec := LazyLoadHistogramVec("lazyHistogramVec", nil, nil)

	// after initialization, newly created metrics become of the prometheus type
	InitializePrometheusMetrics()

	require.IsType(t, &promGaugeMeter{}, lazyGauge())
	require.IsType(t, &promGaugeVecMeter{}, lazyGaugeVec())
	require.IsType(t, &promCountMeter{}, lazyCounter())
	require.IsType(t, &promCountVecMeter{}, lazyCounterVec())
	require.IsType(t, &promHistogramVecMeter{}, lazyHistogramVec())
}
