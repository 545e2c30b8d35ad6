package controller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"hmo-assistant-be/internal/dto"
	"hmo-assistant-be/internal/pkg/logger"
	"hmo-assistant-be/internal/pkg/serverutils"
	"hmo-assistant-be/internal/service"
	ws "hmo-assistant-be/internal/websocket"
	"hmo-assistant-be/pkg/store"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	SendMessageDebug(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type sessionController struct {
	service   service.IConversationService
	hub       *ws.Hub
	jwtSecret string
	baseCtx   context.Context
	logger    logger.ILogger
}

// NewSessionController serves the session API. baseCtx bounds websocket
// turns, which outlive the upgrade request.
func NewSessionController(
	baseCtx context.Context,
	service service.IConversationService,
	hub *ws.Hub,
	jwtSecret string,
	logger logger.ILogger,
) ISessionController {
	return &sessionController{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
		baseCtx:   baseCtx,
		logger:    logger,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	admin := serverutils.JwtMiddleware(c.jwtSecret, "admin")

	h := r.Group("/session/v1")
	h.Post("", c.Create)
	h.Get("stats", admin, c.Stats) // ✅ PROTECTED
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
	h.Post(":id/messages", c.SendMessage)
	h.Post(":id/messages/debug", admin, c.SendMessageDebug) // ✅ PROTECTED
	if c.hub != nil {
		h.Get(":id/ws", c.upgrade, websocket.New(c.chat))
	}
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	res, err := c.service.CreateSession(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.BaseResponse[*dto.CreateSessionResponse]{
		Success: true,
		Code:    fiber.StatusCreated,
		Message: "Session created",
		Data:    res,
	})
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *sessionController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.DeleteSession(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session deleted", nil))
}

func parseMessage(ctx *fiber.Ctx) (*dto.SendMessageRequest, error) {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *sessionController) SendMessage(ctx *fiber.Ctx) error {
	req, err := parseMessage(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.SendMessage(ctx.UserContext(), ctx.Params("id"), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *sessionController) SendMessageDebug(ctx *fiber.Ctx) error {
	req, err := parseMessage(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.SendMessageDebug(ctx.UserContext(), ctx.Params("id"), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *sessionController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.Stats(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session stats", res))
}

// upgrade refuses plain requests and unknown sessions before the handshake.
func (c *sessionController) upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	if _, err := c.service.GetSession(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.Next()
}

func (c *sessionController) chat(conn *websocket.Conn) {
	ws.ServeWs(c.baseCtx, c.hub, conn, conn.Params("id"), c.handleFrame)
}

func (c *sessionController) handleFrame(ctx context.Context, sessionID, text string) []byte {
	req := dto.SendMessageRequest{Message: text}
	var (
		res *dto.SendMessageResponse
		err = serverutils.ValidateRequest(req)
	)
	if err == nil {
		res, err = c.service.SendMessage(ctx, sessionID, &req)
	}

	frame := ws.Frame{Type: "reply", Data: res}
	if err != nil {
		frame = ws.Frame{Type: "error", Data: c.frameError(sessionID, err)}
	}
	data, _ := json.Marshal(frame)
	return data
}

func (c *sessionController) frameError(sessionID string, err error) serverutils.ErrorDetail {
	var verr *serverutils.ValidationError
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return serverutils.ErrorDetail{Type: "session_not_found", Instruction: "Create a new session with POST /api/session/v1."}
	case errors.Is(err, store.ErrSessionBusy):
		return serverutils.ErrorDetail{Type: "session_busy"}
	case errors.As(err, &verr):
		return serverutils.ErrorDetail{Type: "validation_error", Fields: verr.Fields}
	}
	c.logger.Error("WS", "Turn failed", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
	return serverutils.ErrorDetail{Type: "internal_error"}
}
