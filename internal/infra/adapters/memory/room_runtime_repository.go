package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mihika-Tech/LiveCollab/internal/application/constant"
	"github.com/Mihika-Tech/LiveCollab/internal/application/metric"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/runtime"
)

var ErrRuntimeClosed = errors.New("room runtime closed")

const defaultIdleTimeout = time.Minute

// RoomRuntimeRepository хранит живое состояние комнат. Каждой комнатой владеет
// отдельная горутина, все изменения состояния комнаты выполняются ею по очереди.
// Разные комнаты обрабатываются параллельно.
type RoomRuntimeRepository interface {
	// Do выполняет fn в горутине комнаты и ждет результат.
	// fn не должна вызывать Do для той же комнаты.
	Do(ctx context.Context, roomID string, fn func(*runtime.RoomState) error) error
	// Active - количество комнат с запущенной горутиной
	Active() int
	Close()
}

type roomTask struct {
	fn   func(*runtime.RoomState) error
	done chan error
}

type roomActor struct {
	state   *runtime.RoomState
	tasks   chan roomTask
	stopped chan struct{}
}

type roomRuntimeRepository struct {
	idleTimeout time.Duration

	actors map[string]*roomActor
	mu     sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewRoomRuntimeRepository(idleTimeout time.Duration) RoomRuntimeRepository {
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}

	return &roomRuntimeRepository{
		idleTimeout: idleTimeout,
		actors:      make(map[string]*roomActor),
		closed:      make(chan struct{}),
	}
}

func (r *roomRuntimeRepository) Do(ctx context.Context, roomID string, fn func(*runtime.RoomState) error) error {
	task := roomTask{fn: fn, done: make(chan error, 1)}

	for {
		actor, err := r.actor(roomID)
		if err != nil {
			return err
		}

		select {
		case actor.tasks <- task:
			select {
			case err = <-task.done:
				return err
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-actor.stopped:
			// горутина комнаты завершилась по простою, берем новую
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *roomRuntimeRepository) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.actors)
}

func (r *roomRuntimeRepository) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
	})

	r.wg.Wait()
}

func (r *roomRuntimeRepository) actor(roomID string) (*roomActor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-r.closed:
		return nil, ErrRuntimeClosed
	default:
	}

	if a, ok := r.actors[roomID]; ok {
		return a, nil
	}

	a := &roomActor{
		state:   runtime.NewRoomState(roomID),
		tasks:   make(chan roomTask),
		stopped: make(chan struct{}),
	}
	r.actors[roomID] = a

	r.wg.Add(1)
	metric.IncrementRoomActors()

	go r.run(a)

	return a, nil
}

func (r *roomRuntimeRepository) run(a *roomActor) {
	defer r.wg.Done()
	defer metric.DecrementRoomActors()

	idle := time.NewTimer(r.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case task := <-a.tasks:
			task.done <- a.exec(task.fn)

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(r.idleTimeout)

		case <-idle.C:
			if a.state.Empty() {
				r.retire(a)
				return
			}
			idle.Reset(r.idleTimeout)

		case <-r.closed:
			r.retire(a)
			return
		}
	}
}

// retire убирает горутину из реестра. Отправители, ждущие на tasks,
// увидят stopped и создадут новую горутину с чистым состоянием.
func (r *roomRuntimeRepository) retire(a *roomActor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.actors[a.state.ID] == a {
		delete(r.actors, a.state.ID)
	}

	close(a.stopped)
}

func (a *roomActor) exec(fn func(*runtime.RoomState) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error(
				"room task panic",
				slog.String(constant.RoomID, a.state.ID),
				slog.Any(constant.Error, p),
			)

			err = fmt.Errorf("room %s task panic: %v", a.state.ID, p)
		}
	}()

	return fn(a.state)
}
