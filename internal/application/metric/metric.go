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

	// WS метрики - количество активных соединений
	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Количество активных WebSocket соединений",
		},
	)

	// Комнаты с запущенным обработчиком
	roomActiveActors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "room_active_actors",
			Help: "Количество комнат с активным обработчиком состояния",
		},
	)

	roomJoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_joins_total",
			Help: "Попытки входа в комнату по результату",
		},
		[]string{"result"},
	)

	chatMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Количество разосланных сообщений чата",
		},
	)

	broadcastsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcasts_active",
			Help: "Количество активных трансляций",
		},
	)

	signalingRelayedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaling_relayed_total",
			Help: "Сигнальные сообщения WebRTC по типу и результату",
		},
		[]string{"kind", "result"},
	)

	slowConsumersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_slow_consumers_total",
			Help: "Соединения, закрытые из-за переполненного буфера отправки",
		},
	)
)

// RecordHTTPMetrics записывает метрики HTTP запроса
func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())
}

func IncrementWSActiveConnections() {
	wsActiveConnections.Inc()
}

func DecrementWSActiveConnections() {
	wsActiveConnections.Dec()
}

func IncrementRoomActors() {
	roomActiveActors.Inc()
}

func DecrementRoomActors() {
	roomActiveActors.Dec()
}

// RecordJoin result - "ok" или код ошибки
func RecordJoin(result string) {
	roomJoinsTotal.WithLabelValues(result).Inc()
}

func RecordChatMessage() {
	chatMessagesTotal.Inc()
}

func IncrementBroadcasts() {
	broadcastsActive.Inc()
}

func DecrementBroadcasts() {
	broadcastsActive.Dec()
}

func RecordSignaling(kind string, delivered bool) {
	result := "delivered"
	if !delivered {
		result = "dropped"
	}

	signalingRelayedTotal.WithLabelValues(kind, result).Inc()
}

func RecordSlowConsumer() {
	slowConsumersTotal.Inc()
}
