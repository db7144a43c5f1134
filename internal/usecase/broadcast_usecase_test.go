package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/errs"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/events"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/runtime"
)

func TestBroadcastSingleSlot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b, c := newConn("alice"), newConn("bob"), newConn("carol")
	e.mustJoin(t, a, "room", "")
	e.mustJoin(t, b, "room", "")
	e.mustJoin(t, c, "room", "")

	if err := e.broadcast.StartBroadcast(ctx, a, "room", models.MediaCamera); err != nil {
		t.Fatalf("StartBroadcast: %v", err)
	}

	for _, conn := range []runtime.Conn{b, c} {
		ev := decode[events.BroadcastStartedEvent](t, e.notifier.last(t, conn.ID, events.TypeBroadcastStarted))
		if ev.BroadcasterID != a.User.ID || ev.BroadcasterConnID != a.ID || ev.Kind != models.MediaCamera {
			t.Fatalf("unexpected broadcastStarted for %s: %+v", conn.User.Name, ev)
		}
	}
	if n := e.notifier.count(a.ID, events.TypeBroadcastStarted); n != 0 {
		t.Fatalf("broadcaster must not receive own broadcastStarted, got %d", n)
	}

	err := e.broadcast.StartBroadcast(ctx, b, "room", models.MediaCamera)
	if !errors.Is(err, errs.ErrBroadcastActive) || !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("second broadcaster: expected ErrBroadcastActive, got %v", err)
	}
	if errs.Code(err) != "BroadcastActive" {
		t.Fatalf("unexpected code %q", errs.Code(err))
	}

	// повторный старт тем же соединением разрешен
	if err = e.broadcast.StartBroadcast(ctx, a, "room", models.MediaCamera); err != nil {
		t.Fatalf("restart by holder: %v", err)
	}

	// остановка чужим соединением ничего не делает
	if err = e.broadcast.StopBroadcast(ctx, b, "room"); err != nil {
		t.Fatalf("StopBroadcast by non-holder: %v", err)
	}
	if n := e.notifier.count(c.ID, events.TypeBroadcastStopped); n != 0 {
		t.Fatalf("non-holder stop must be ignored, got %d broadcastStopped", n)
	}

	if err = e.broadcast.StopBroadcast(ctx, a, "room"); err != nil {
		t.Fatalf("StopBroadcast: %v", err)
	}
	for _, conn := range []runtime.Conn{a, b, c} {
		ev := decode[events.BroadcastStoppedEvent](t, e.notifier.last(t, conn.ID, events.TypeBroadcastStopped))
		if ev.BroadcasterID != a.User.ID || ev.Message != "alice stopped broadcasting" {
			t.Fatalf("unexpected broadcastStopped for %s: %+v", conn.User.Name, ev)
		}
	}

	if err = e.broadcast.StartBroadcast(ctx, b, "room", models.MediaCamera); err != nil {
		t.Fatalf("slot must be free after stop: %v", err)
	}
}

func TestBroadcastConcurrentStart(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	conns := make([]runtime.Conn, 8)
	for i := range conns {
		conns[i] = newConn("user")
		e.mustJoin(t, conns[i], "room", "")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
	)

	for _, conn := range conns {
		wg.Add(1)
		go func(conn runtime.Conn) {
			defer wg.Done()

			err := e.broadcast.StartBroadcast(ctx, conn, "room", models.MediaCamera)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				started++
			case !errors.Is(err, errs.ErrBroadcastActive):
				t.Errorf("unexpected error: %v", err)
			}
		}(conn)
	}
	wg.Wait()

	if started != 1 {
		t.Fatalf("expected exactly one broadcaster, got %d", started)
	}
}

func TestBroadcastFeatureFlags(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := newConn("alice")
	e.mustJoin(t, a, "room", "")

	off := false
	if _, err := e.rooms.SetCustomization(ctx, "room", models.CustomizationPatch{EnableScreenShare: &off}); err != nil {
		t.Fatalf("SetCustomization: %v", err)
	}

	if err := e.broadcast.StartBroadcast(ctx, a, "room", models.MediaScreen); !errors.Is(err, errs.ErrFeatureDisabled) {
		t.Fatalf("screen share disabled: expected ErrFeatureDisabled, got %v", err)
	}
	if err := e.broadcast.StartBroadcast(ctx, a, "room", models.MediaCamera); err != nil {
		t.Fatalf("camera with screen share off: %v", err)
	}
	if err := e.broadcast.StopBroadcast(ctx, a, "room"); err != nil {
		t.Fatalf("StopBroadcast: %v", err)
	}

	if _, err := e.rooms.SetCustomization(ctx, "room", models.CustomizationPatch{EnableVideo: &off}); err != nil {
		t.Fatalf("SetCustomization: %v", err)
	}
	if err := e.broadcast.StartBroadcast(ctx, a, "room", models.MediaCamera); !errors.Is(err, errs.ErrFeatureDisabled) {
		t.Fatalf("video disabled: expected ErrFeatureDisabled, got %v", err)
	}
}

func TestBroadcastRequiresPermission(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := newConn("alice"), newConn("bob")
	e.mustJoin(t, a, "room", "")
	e.mustJoin(t, b, "room", "")

	deny := false
	if _, err := e.rooms.SetPermissions(ctx, "room", models.RoleMember, models.PermissionsPatch{CanBroadcast: &deny}); err != nil {
		t.Fatalf("SetPermissions: %v", err)
	}

	if err := e.broadcast.StartBroadcast(ctx, b, "room", models.MediaCamera); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if err := e.broadcast.StartBroadcast(ctx, newConn("stranger"), "room", models.MediaCamera); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("non-member: expected ErrNotFound, got %v", err)
	}
}

func TestDisconnectClearsBroadcaster(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := newConn("alice"), newConn("bob")
	e.mustJoin(t, a, "room", "")
	e.mustJoin(t, b, "room", "")

	if err := e.broadcast.StartBroadcast(ctx, a, "room", models.MediaCamera); err != nil {
		t.Fatalf("StartBroadcast: %v", err)
	}

	if err := e.membership.Leave(ctx, a); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	want := []string{events.TypeBroadcastStopped, events.TypeUserLeft}
	types := e.notifier.types(b.ID)
	got := types[len(types)-2:]
	if got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v at the end, got %v", want, types)
	}

	if err := e.broadcast.StartBroadcast(ctx, b, "room", models.MediaCamera); err != nil {
		t.Fatalf("slot must be free after disconnect: %v", err)
	}
}

func TestSignalingHandshake(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b := newConn("alice"), newConn("bob")
	e.mustJoin(t, a, "room", "")
	e.mustJoin(t, b, "room", "")

	if err := e.broadcast.StartBroadcast(ctx, a, "room", models.MediaCamera); err != nil {
		t.Fatalf("StartBroadcast: %v", err)
	}

	if err := e.broadcast.RequestOffer(ctx, b, a.ID); err != nil {
		t.Fatalf("RequestOffer: %v", err)
	}
	req := decode[events.RequestOfferRelay](t, e.notifier.last(t, a.ID, events.TypeRequestOffer))
	if req.Requester != b.ID || req.RequesterName != "bob" {
		t.Fatalf("unexpected requestOffer %+v", req)
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0 offer"}
	if err := e.broadcast.SendOffer(ctx, a, b.ID, offer); err != nil {
		t.Fatalf("SendOffer: %v", err)
	}
	gotOffer := decode[events.OfferRelay](t, e.notifier.last(t, b.ID, events.TypeReceiveOffer))
	if gotOffer.Sender != a.ID || gotOffer.Offer.SDP != offer.SDP || gotOffer.Offer.Type != webrtc.SDPTypeOffer {
		t.Fatalf("unexpected receiveOffer %+v", gotOffer)
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0 answer"}
	if err := e.broadcast.SendAnswer(ctx, b, a.ID, answer); err != nil {
		t.Fatalf("SendAnswer: %v", err)
	}
	gotAnswer := decode[events.AnswerRelay](t, e.notifier.last(t, a.ID, events.TypeReceiveAnswer))
	if gotAnswer.Sender != b.ID || gotAnswer.Answer.SDP != answer.SDP {
		t.Fatalf("unexpected receiveAnswer %+v", gotAnswer)
	}

	mid := "0"
	candidate := webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 1 10.0.0.1 5000 typ host", SDPMid: &mid}
	if err := e.broadcast.SendCandidate(ctx, b, a.ID, candidate); err != nil {
		t.Fatalf("SendCandidate: %v", err)
	}
	gotCandidate := decode[events.CandidateRelay](t, e.notifier.last(t, a.ID, events.TypeCandidate))
	if gotCandidate.Sender != b.ID || gotCandidate.Candidate.Candidate != candidate.Candidate {
		t.Fatalf("unexpected ice-candidate %+v", gotCandidate)
	}
}

func TestSignalingDropsMissingTarget(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, b, outsider := newConn("alice"), newConn("bob"), newConn("outsider")
	e.mustJoin(t, a, "room", "")
	e.mustJoin(t, b, "room", "")
	e.mustJoin(t, outsider, "elsewhere", "")

	if err := e.membership.Leave(ctx, b); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"}

	// цель ушла во время рукопожатия
	if err := e.broadcast.SendOffer(ctx, a, b.ID, offer); err != nil {
		t.Fatalf("missing target must be dropped silently, got %v", err)
	}
	if n := e.notifier.count(b.ID, events.TypeReceiveOffer); n != 0 {
		t.Fatalf("departed target received %d offers", n)
	}

	// соединение из другой комнаты недоступно
	if err := e.broadcast.SendOffer(ctx, a, outsider.ID, offer); err != nil {
		t.Fatalf("foreign target must be dropped silently, got %v", err)
	}
	if n := e.notifier.count(outsider.ID, events.TypeReceiveOffer); n != 0 {
		t.Fatalf("foreign connection received %d offers", n)
	}

	if err := e.broadcast.SendOffer(ctx, b, a.ID, offer); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("sender outside any room: expected ErrNotFound, got %v", err)
	}

	if err := e.broadcast.SendOffer(ctx, a, "", offer); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("empty target: expected ErrInvalidInput, got %v", err)
	}
}
