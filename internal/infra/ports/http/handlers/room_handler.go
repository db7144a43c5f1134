package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/input"
	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/appctx"
	"github.com/Mihika-Tech/LiveCollab/internal/infra/ports/http/dto"
	"github.com/Mihika-Tech/LiveCollab/internal/usecase"
)

type RoomHandler struct {
	roomUsecase       usecase.RoomUsecase
	membershipUsecase usecase.MembershipUsecase
}

func NewRoomHandler(roomUsecase usecase.RoomUsecase, membershipUsecase usecase.MembershipUsecase) *RoomHandler {
	return &RoomHandler{
		roomUsecase:       roomUsecase,
		membershipUsecase: membershipUsecase,
	}
}

func (h *RoomHandler) CreateRoom(c echo.Context) error {
	identity, ok := appctx.Identity(c.Request().Context())
	if !ok {
		return unauthorized(c)
	}

	var req dto.CreateRoomRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	room, err := h.roomUsecase.CreateRoom(c.Request().Context(), &input.CreateRoomInput{
		ID:              req.ID,
		Name:            req.Name,
		Description:     req.Description,
		IsPrivate:       req.IsPrivate,
		Password:        req.Password,
		MaxParticipants: req.MaxParticipants,
		OwnerID:         &identity.ID,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, dto.RoomResponse{Room: room})
}

func (h *RoomHandler) GetRoom(c echo.Context) error {
	info, err := h.roomUsecase.GetRoomInfo(c.Request().Context(), c.Param("roomId"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, info)
}

func (h *RoomHandler) GetSettings(c echo.Context) error {
	identity, ok := appctx.Identity(c.Request().Context())
	if !ok {
		return unauthorized(c)
	}

	settings, err := h.roomUsecase.GetSettings(c.Request().Context(), c.Param("roomId"), identity.ID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, settings)
}

func (h *RoomHandler) UpdateSecurity(c echo.Context) error {
	identity, ok := appctx.Identity(c.Request().Context())
	if !ok {
		return unauthorized(c)
	}

	var req dto.UpdateSecurityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	settings, err := h.roomUsecase.UpdateSecurity(c.Request().Context(), c.Param("roomId"), identity.ID, &input.UpdateSecurityInput{
		IsPrivate:       req.IsPrivate,
		Password:        req.Password,
		MaxParticipants: req.MaxParticipants,
		Permissions:     req.Permissions,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, settings)
}

func (h *RoomHandler) UpdateCustomization(c echo.Context) error {
	identity, ok := appctx.Identity(c.Request().Context())
	if !ok {
		return unauthorized(c)
	}

	var patch models.CustomizationPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid request")
	}

	customization, err := h.roomUsecase.UpdateCustomization(c.Request().Context(), c.Param("roomId"), identity.ID, patch)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, dto.CustomizationResponse{Customization: customization})
}

func (h *RoomHandler) ChangeRole(c echo.Context) error {
	identity, ok := appctx.Identity(c.Request().Context())
	if !ok {
		return unauthorized(c)
	}

	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	var req dto.ChangeRoleRequest
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err = h.membershipUsecase.ChangeRole(c.Request().Context(), c.Param("roomId"), identity.ID, targetID, role); err != nil {
		return errorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *RoomHandler) Kick(c echo.Context) error {
	identity, ok := appctx.Identity(c.Request().Context())
	if !ok {
		return unauthorized(c)
	}

	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	if err = h.membershipUsecase.Kick(c.Request().Context(), c.Param("roomId"), identity.ID, targetID); err != nil {
		return errorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
