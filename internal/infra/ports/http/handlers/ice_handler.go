package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pion/webrtc/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/application/config"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/ports/http/dto"
)

const turnCredentialTTL = time.Hour

type IceHandler struct {
	cfg *config.Config
	now func() time.Time
}

func NewIceHandler(cfg *config.Config) *IceHandler {
	return &IceHandler{cfg: cfg, now: time.Now}
}

// IceServers отдает STUN и, если настроен coturn, временные TURN-креды
// в формате use-auth-secret: username = срок действия, credential = HMAC-SHA1 от него.
func (h *IceHandler) IceServers(c echo.Context) error {
	servers := make([]webrtc.ICEServer, 0, len(h.cfg.ICEServers))

	for _, srv := range h.cfg.ICEServers {
		if h.cfg.Coturn.Enabled() && isTURN(srv) {
			srv.Username, srv.Credential = h.turnCredentials()
		}

		servers = append(servers, srv)
	}

	return c.JSON(http.StatusOK, dto.IceServersResponse{IceServers: servers})
}

func (h *IceHandler) turnCredentials() (string, string) {
	username := fmt.Sprintf("%d", h.now().Add(turnCredentialTTL).Unix())

	// Создаём HMAC-SHA1 с использованием static-auth-secret
	mac := hmac.New(sha1.New, []byte(h.cfg.Coturn.Secret))
	mac.Write([]byte(username))

	return username, base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func isTURN(srv webrtc.ICEServer) bool {
	for _, u := range srv.URLs {
		if strings.HasPrefix(u, "turn:") || strings.HasPrefix(u, "turns:") {
			return true
		}
	}

	return false
}
