package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pion/webrtc/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/application/config"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/ports/http/dto"
)

func TestIceServers(t *testing.T) {
	cfg := &config.Config{
		Coturn: config.CoturnConfig{Host: "turn.example.com", Secret: "s3cret"},
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.example.com:3478"}},
			{URLs: []string{"turn:turn.example.com?transport=udp"}},
		},
	}

	now := time.Unix(1_700_000_000, 0)

	h := NewIceHandler(cfg)
	h.now = func() time.Time { return now }

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/ice", nil), rec)

	if err := h.IceServers(c); err != nil {
		t.Fatalf("IceServers: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.IceServersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.IceServers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(resp.IceServers))
	}

	stun := resp.IceServers[0]
	if stun.Username != "" {
		t.Fatalf("STUN server must not carry credentials: %+v", stun)
	}

	turn := resp.IceServers[1]
	wantUser := strconv.FormatInt(now.Add(turnCredentialTTL).Unix(), 10)
	if turn.Username != wantUser {
		t.Fatalf("username = %q, want %q", turn.Username, wantUser)
	}

	mac := hmac.New(sha1.New, []byte("s3cret"))
	mac.Write([]byte(wantUser))
	if turn.Credential != base64.StdEncoding.EncodeToString(mac.Sum(nil)) {
		t.Fatalf("unexpected credential %v", turn.Credential)
	}

	// конфиг не должен меняться между запросами
	if cfg.ICEServers[1].Username != "" {
		t.Fatal("handler mutated shared config")
	}
}

func TestIceServersWithoutCoturn(t *testing.T) {
	cfg := &config.Config{
		ICEServers: []webrtc.ICEServer{{URLs: []string{"turn:turn.example.com"}}},
	}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/ice", nil), rec)

	if err := NewIceHandler(cfg).IceServers(c); err != nil {
		t.Fatalf("IceServers: %v", err)
	}

	var resp dto.IceServersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.IceServers[0].Username != "" {
		t.Fatalf("credentials issued without coturn secret: %+v", resp.IceServers[0])
	}
}
