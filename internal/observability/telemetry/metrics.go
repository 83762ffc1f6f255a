package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VoiceCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vitrina_voice_commands_total",
		Help: "Total de comandos de voz/texto processados",
	}, []string{"intent", "status"})

	VoiceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vitrina_voice_latency_seconds",
		Help:    "Latência de processamento de um comando",
		Buckets: prometheus.DefBuckets,
	}, []string{"intent"})

	VoiceQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vitrina_voice_queue_depth",
		Help: "Comandos aguardando processamento",
	})

	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vitrina_cart_mutations_total",
		Help: "Mutações de carrinho por operação",
	}, []string{"operation"})

	StockClampsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vitrina_cart_stock_clamps_total",
		Help: "Quantidades ajustadas ao limite de estoque",
	})

	CaptureEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vitrina_capture_events_total",
		Help: "Eventos de sessões de captura de voz",
	}, []string{"event"})

	CatalogSearchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vitrina_catalog_search_latency_seconds",
		Help:    "Latência das buscas no catálogo",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "status"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vitrina_events_published_total",
		Help: "Eventos publicados no barramento",
	}, []string{"type"})
)
