package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP метрики - количество запросов
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTP метрики - время обработки запросов
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTP метрики - количество ошибок
	httpErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Общее количество HTTP ошибок",
		},
		[]string{"method", "endpoint", "status"},
	)

	// WS метрики - количество активных соединений
	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Количество активных WebSocket соединений",
		},
	)

	wsConnectionsRefused = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_connections_refused_total",
			Help: "Количество соединений, отклонённых при проверке токена",
		},
	)

	broadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcasts_total",
			Help: "Количество рассылок в комнаты",
		},
		[]string{"event"},
	)

	// result: delivered | dropped | closed
	broadcastDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Попытки доставки участникам комнат",
		},
		[]string{"result"},
	)

	eventsUnroutable = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_unroutable_total",
			Help: "События без корректного адреса комнаты",
		},
		[]string{"event"},
	)

	roomJoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_joins_total",
			Help: "Входы в комнаты по виду комнаты",
		},
		[]string{"kind"},
	)
)

// RecordHTTPMetrics записывает метрики HTTP запроса
func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())

	// Записываем ошибки (статус >= 400)
	if status >= 400 {
		httpErrorsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	}
}

func IncrementWSActiveConnections() {
	wsActiveConnections.Inc()
}

func DecrementWSActiveConnections() {
	wsActiveConnections.Dec()
}

func IncrementRefusedConnections() {
	wsConnectionsRefused.Inc()
}

// RecordBroadcast: dropped - переполненная очередь, closed - соединение уже закрыто
func RecordBroadcast(event string, delivered, dropped, closed int) {
	broadcastsTotal.WithLabelValues(event).Inc()
	broadcastDeliveries.WithLabelValues("delivered").Add(float64(delivered))
	broadcastDeliveries.WithLabelValues("dropped").Add(float64(dropped))
	broadcastDeliveries.WithLabelValues("closed").Add(float64(closed))
}

func IncrementUnroutable(event string) {
	eventsUnroutable.WithLabelValues(event).Inc()
}

func IncrementRoomJoins(kind string) {
	roomJoinsTotal.WithLabelValues(kind).Inc()
}
