package memory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/application/metric"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
)

const (
	// Время на запись одного сообщения
	writeWait = 10 * time.Second

	// Период пингов, должен быть меньше дедлайна чтения на стороне обработчика
	pingPeriod = 54 * time.Second
)

// Socket - часть *websocket.Conn, нужная для записи
type Socket interface {
	WriteJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// WebsocketConnectionRepository хранит активные соединения. У каждого соединения
// своя очередь отправки и единственная пишущая горутина.
type WebsocketConnectionRepository interface {
	// Add регистрирует соединение; возвращаемый канал закрывается, когда пишущая горутина завершилась
	Add(connID string, ws Socket) <-chan struct{}
	Remove(connID string)

	// Send ставит событие в очередь. Переполненная очередь закрывает соединение.
	Send(connID string, ev events.Outbound) bool
	// Close отправляет все уже поставленные события и закрывает соединение
	Close(connID string)

	Count() int
}

type outbound struct {
	ev         events.Outbound
	closeAfter bool
}

type wsClient struct {
	id   string
	ws   Socket
	send chan outbound

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type wsConnectionRepository struct {
	bufferSize int
	pingPeriod time.Duration

	// wsConns хранит map[conn_id]*wsClient
	wsConns map[string]*wsClient

	mu sync.RWMutex
}

func NewWSConnectionRepository(bufferSize int) WebsocketConnectionRepository {
	return newWSConnectionRepository(bufferSize, pingPeriod)
}

func newWSConnectionRepository(bufferSize int, ping time.Duration) *wsConnectionRepository {
	if bufferSize <= 0 {
		bufferSize = 64
	}

	return &wsConnectionRepository{
		bufferSize: bufferSize,
		pingPeriod: ping,
		wsConns:    make(map[string]*wsClient, 10),
	}
}

func (w *wsConnectionRepository) Add(connID string, ws Socket) <-chan struct{} {
	client := &wsClient{
		id:   connID,
		ws:   ws,
		send: make(chan outbound, w.bufferSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	w.mu.Lock()
	if prev, exists := w.wsConns[connID]; exists {
		prev.shutdown()
	} else {
		metric.IncrementWSActiveConnections()
	}
	w.wsConns[connID] = client
	w.mu.Unlock()

	go client.writePump(w.pingPeriod)

	return client.done
}

func (w *wsConnectionRepository) Remove(connID string) {
	w.mu.Lock()
	client, exists := w.wsConns[connID]
	if exists {
		delete(w.wsConns, connID)
		metric.DecrementWSActiveConnections()
	}
	w.mu.Unlock()

	if exists {
		client.shutdown()
	}
}

func (w *wsConnectionRepository) Send(connID string, ev events.Outbound) bool {
	client, ok := w.get(connID)
	if !ok {
		return false
	}

	return client.enqueue(outbound{ev: ev})
}

func (w *wsConnectionRepository) Close(connID string) {
	client, ok := w.get(connID)
	if !ok {
		return
	}

	client.enqueue(outbound{closeAfter: true})
}

func (w *wsConnectionRepository) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.wsConns)
}

func (w *wsConnectionRepository) get(connID string) (*wsClient, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	client, ok := w.wsConns[connID]
	return client, ok
}

func (c *wsClient) enqueue(msg outbound) bool {
	select {
	case <-c.stop:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		slog.Warn("send buffer full, dropping connection", slog.String(constant.ConnID, c.id))
		metric.RecordSlowConsumer()
		c.shutdown()

		return false
	}
}

func (c *wsClient) shutdown() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *wsClient) writePump(ping time.Duration) {
	ticker := time.NewTicker(ping)

	defer func() {
		// после выхода из цикла очередь больше не читается, enqueue должен сразу отказывать
		c.shutdown()
		ticker.Stop()
		_ = c.ws.Close()
		close(c.done)
	}()

	for {
		select {
		case msg := <-c.send:
			if msg.closeAfter {
				_ = c.ws.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "removed from room"),
					time.Now().Add(writeWait),
				)
				return
			}

			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.ws.WriteJSON(msg.ev); err != nil {
				slog.Error(
					"write to websocket",
					slog.Any(constant.Error, err),
					slog.String(constant.ConnID, c.id),
				)
				return
			}

		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Debug("ping failed", slog.Any(constant.Error, err), slog.String(constant.ConnID, c.id))
				return
			}

		case <-c.stop:
			return
		}
	}
}
