package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"go.mau.fi/phonemeow/pkg/phonemeow"
)

type MetricsHandler struct {
	log    zerolog.Logger
	server *http.Server
	client *phonemeow.Client

	syncs          *prometheus.CounterVec
	resolves       *prometheus.CounterVec
	cachedContacts prometheus.GaugeFunc
}

func NewMetricsHandler(address string, log zerolog.Logger, client *phonemeow.Client) *MetricsHandler {
	mh := &MetricsHandler{
		log:    log.With().Str("component", "metrics").Logger(),
		server: &http.Server{Addr: address, Handler: promhttp.Handler()},
		client: client,
		syncs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "phonemeow_syncs_total",
			Help: "Number of contact synchronization runs",
		}, []string{"outcome"}),
		resolves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "phonemeow_resolves_total",
			Help: "Number of match resolution flows by terminal or handed-off state",
		}, []string{"state"}),
	}
	mh.cachedContacts = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "phonemeow_cached_contact_pairs",
		Help: "Number of contact pairs in the archive",
	}, func() float64 {
		return float64(client.Cache.Len())
	})
	return mh
}

func (mh *MetricsHandler) TrackSync(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	mh.syncs.With(prometheus.Labels{"outcome": outcome}).Inc()
}

func (mh *MetricsHandler) TrackResolve(result phonemeow.FlowResult) {
	var state string
	switch result.(type) {
	case phonemeow.SelectNumber:
		state = "select_number"
	case phonemeow.SelectCallingCode:
		state = "select_calling_code"
	case phonemeow.StartConversation:
		state = "start_conversation"
	default:
		state = "error"
	}
	mh.resolves.With(prometheus.Labels{"state": state}).Inc()
}

func (mh *MetricsHandler) Start() {
	mh.log.Info().Str("listen", mh.server.Addr).Msg("Starting metrics server")
	err := mh.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		mh.log.Err(err).Msg("Metrics server stopped")
	}
}
