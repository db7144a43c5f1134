package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
)

// Входящие события
const (
	TypeJoinRoom       = "joinRoom"
	TypeLeaveRoom      = "leaveRoom"
	TypeSendMessage    = "sendMessage"
	TypeStartBroadcast = "startBroadcast"
	TypeStopBroadcast  = "stopBroadcast"
	TypeRequestOffer   = "requestOffer"
	TypeSendOffer      = "sendOffer"
	TypeSendAnswer     = "sendAnswer"
	TypeIceCandidate   = "iceCandidate"
	TypePing           = "ping"

	// короткие имена старых клиентов, полезная нагрузка как у sendOffer/sendAnswer
	TypeOffer  = "offer"
	TypeAnswer = "answer"
)

// Исходящие события
const (
	TypeRoomJoined           = "roomJoined"
	TypeError                = "error"
	TypeMessageHistory       = "messageHistory"
	TypeRoomUsers            = "roomUsers"
	TypeUserJoined           = "userJoined"
	TypeUserLeft             = "userLeft"
	TypeUserRoleChanged      = "userRoleChanged"
	TypeKicked               = "kicked"
	TypeBroadcastStarted     = "broadcastStarted"
	TypeBroadcastStopped     = "broadcastStopped"
	TypeReceiveOffer         = "receiveOffer"
	TypeReceiveAnswer        = "receiveAnswer"
	TypeReceiveMessage       = "receiveMessage"
	TypeCustomizationUpdated = "customizationUpdated"
	TypePong                 = "pong"

	// TypeCandidate используется в обе стороны, входящий вариант принимается
	// наравне с TypeIceCandidate
	TypeCandidate = "ice-candidate"
)

// Message - входящее событие от клиента
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Outbound - исходящее событие для клиента
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func New(typ string, data any) Outbound {
	return Outbound{Type: typ, Data: data}
}

// JoinRoomEvent - запрос на вход в комнату
type JoinRoomEvent struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password,omitempty"`
}

// RoomEvent - события, адресованные комнате без дополнительных данных
type RoomEvent struct {
	RoomID string `json:"roomId"`
}

// SendMessageEvent - сообщение чата; message принимается для старых клиентов
type SendMessageEvent struct {
	RoomID  string `json:"roomId"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

func (e SendMessageEvent) Body() string {
	if e.Text != "" {
		return e.Text
	}

	return e.Message
}

type StartBroadcastEvent struct {
	RoomID string `json:"roomId"`
	Kind   string `json:"kind,omitempty"`
}

type RequestOfferEvent struct {
	Target string `json:"target"`
}

type OfferEvent struct {
	Target string                    `json:"target"`
	Offer  webrtc.SessionDescription `json:"offer"`
}

type AnswerEvent struct {
	Target string                    `json:"target"`
	Answer webrtc.SessionDescription `json:"answer"`
}

// IceCandidateEvent - ICE кандидаты
type IceCandidateEvent struct {
	Target    string                  `json:"target"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// UserView - участник комнаты в событиях присутствия
type UserView struct {
	UserID   uuid.UUID   `json:"userId"`
	UserName string      `json:"userName"`
	Role     models.Role `json:"role"`
	ConnID   string      `json:"connId"`
	JoinedAt time.Time   `json:"joinedAt"`
}

type RoomJoinedEvent struct {
	Room          *models.Room         `json:"room"`
	Role          models.Role          `json:"role"`
	Permissions   models.Permissions   `json:"permissions"`
	Customization models.Customization `json:"customization"`
	ConnID        string               `json:"connId"`
}

// PresenceEvent - userJoined / userLeft
type PresenceEvent struct {
	Message  string      `json:"message"`
	UserID   uuid.UUID   `json:"userId"`
	UserName string      `json:"userName"`
	Role     models.Role `json:"role,omitempty"`
	Users    []UserView  `json:"users"`
}

type UserRoleChangedEvent struct {
	UserID   uuid.UUID   `json:"userId"`
	UserName string      `json:"userName,omitempty"`
	NewRole  models.Role `json:"newRole"`
}

type KickedEvent struct {
	Message string `json:"message"`
	RoomID  string `json:"roomId"`
}

type BroadcastStartedEvent struct {
	BroadcasterID     uuid.UUID        `json:"broadcasterId"`
	BroadcasterName   string           `json:"broadcasterName"`
	BroadcasterConnID string           `json:"broadcasterConnId"`
	Kind              models.MediaKind `json:"kind"`
}

type BroadcastStoppedEvent struct {
	BroadcasterID   uuid.UUID `json:"broadcasterId"`
	BroadcasterName string    `json:"broadcasterName"`
	Message         string    `json:"message"`
}

type RequestOfferRelay struct {
	Requester     string `json:"requester"`
	RequesterName string `json:"requesterName"`
}

type OfferRelay struct {
	Offer      webrtc.SessionDescription `json:"offer"`
	Sender     string                    `json:"sender"`
	SenderName string                    `json:"senderName"`
}

type AnswerRelay struct {
	Answer     webrtc.SessionDescription `json:"answer"`
	Sender     string                    `json:"sender"`
	SenderName string                    `json:"senderName"`
}

type CandidateRelay struct {
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	Sender    string                  `json:"sender"`
}

type CustomizationUpdatedEvent struct {
	Customization models.Customization `json:"customization"`
}

type ErrorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
