package tablestore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of a Store.
type Metrics struct {
	Loads        *prometheus.CounterVec
	LoadDuration prometheus.Histogram
	TablesLoaded prometheus.Gauge
	RowsResident prometheus.Gauge
	RowsDecoded  prometheus.Counter
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "db2kit_table_loads_total",
		Help: "Table loads by result",
	}, []string{"result"})

	loadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "db2kit_table_load_duration_seconds",
		Help:    "Time spent opening and parsing a table",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	tablesLoaded := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "db2kit_tables_loaded",
		Help: "Tables currently held in the cache",
	})

	rowsResident := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "db2kit_rows_resident",
		Help: "Logical rows across all cached tables",
	})

	rowsDecoded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "db2kit_rows_decoded_total",
		Help: "Rows decoded for readers",
	})

	reg.MustRegister(loads, loadDuration, tablesLoaded, rowsResident, rowsDecoded)

	return &Metrics{
		Loads:        loads,
		LoadDuration: loadDuration,
		TablesLoaded: tablesLoaded,
		RowsResident: rowsResident,
		RowsDecoded:  rowsDecoded,
	}
}

func (m *Metrics) observeLoad(d time.Duration, rows int, err error) {
	if m == nil {
		return
	}
	m.LoadDuration.Observe(d.Seconds())
	if err != nil {
		m.Loads.WithLabelValues("error").Inc()
		return
	}
	m.Loads.WithLabelValues("ok").Inc()
	m.TablesLoaded.Inc()
	m.RowsResident.Add(float64(rows))
}

func (m *Metrics) observeDecoded(n int) {
	if m == nil {
		return
	}
	m.RowsDecoded.Add(float64(n))
}
