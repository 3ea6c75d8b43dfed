package app

import (
	"strconv"

	"github.com/calehh/dao-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "dao"

type Metrics struct {
	Height   prometheus.Gauge
	Txs      *prometheus.CounterVec
	CheckTxs *prometheus.CounterVec
	Events   *prometheus.CounterVec
}

// NewMetrics registers the app collectors with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) (m *Metrics, err error) {
	m = &Metrics{
		Height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "app",
			Name:      "height",
			Help:      "Height of the last committed block.",
		}),
		Txs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "app",
			Name:      "txs_total",
			Help:      "Finalized txs by type and result code.",
		}, []string{"type", "code"}),
		CheckTxs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "mempool",
			Name:      "check_txs_total",
			Help:      "CheckTx calls by result code.",
		}, []string{"code"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "governance",
			Name:      "events_total",
			Help:      "Governance events emitted by successful txs.",
		}, []string{"event"}),
	}
	if reg == nil {
		return
	}
	for _, c := range []prometheus.Collector{m.Height, m.Txs, m.CheckTxs, m.Events} {
		if err = reg.Register(c); err != nil {
			return nil, err
		}
	}
	return
}

func (m *Metrics) ObserveTx(tp tx.DAOTxType, code uint32) {
	m.Txs.WithLabelValues(tp.String(), strconv.FormatUint(uint64(code), 10)).Inc()
}

func (m *Metrics) ObserveCheckTx(code uint32) {
	m.CheckTxs.WithLabelValues(strconv.FormatUint(uint64(code), 10)).Inc()
}

func (m *Metrics) ObserveEvents(events []abcitypes.Event) {
	for _, ev := range events {
		m.Events.WithLabelValues(ev.Type).Inc()
	}
}
