package controller

import (
	"ontology-chat/internal/pkg/serverutils"
	"ontology-chat/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	GetSession(ctx *fiber.Ctx) error
	ResetSession(ctx *fiber.Ctx) error
	SessionInfo(ctx *fiber.Ctx) error
	ChatHistory(ctx *fiber.Ctx) error
	ClearChatHistory(ctx *fiber.Ctx) error
	AvailableMindmaps(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
	cookie         *serverutils.SessionCookie
}

func NewSessionController(sessionService service.ISessionService, cookie *serverutils.SessionCookie) ISessionController {
	return &sessionController{
		sessionService: sessionService,
		cookie:         cookie,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	r.Get("get-session", c.GetSession)
	r.Post("reset-session", c.ResetSession)
	r.Get("session-info", c.SessionInfo)
	r.Get("get-chat-history", c.ChatHistory)
	r.Post("clear-chat-history", c.ClearChatHistory)
	r.Get("get_available_mindmap", c.AvailableMindmaps)
}

// GetSession is idempotent: the session bound to the caller's cookie is
// returned when present, and a fresh one is minted otherwise.
func (c *sessionController) GetSession(ctx *fiber.Ctx) error {
	current := c.cookie.Read(ctx)

	res, err := c.sessionService.GetOrCreate(ctx.Context(), current)
	if err != nil {
		return err
	}

	if res.SessionId != current {
		if err := c.cookie.Write(ctx, res.SessionId); err != nil {
			return err
		}
	}
	return ctx.JSON(res)
}

func (c *sessionController) ResetSession(ctx *fiber.Ctx) error {
	current := c.cookie.Read(ctx)

	res, err := c.sessionService.Reset(ctx.Context(), current)
	if err != nil {
		return err
	}

	if err := c.cookie.Write(ctx, res.SessionId); err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *sessionController) SessionInfo(ctx *fiber.Ctx) error {
	current := c.cookie.Read(ctx)
	if current == "" {
		return serverutils.NewNotFound("no active session")
	}

	res, err := c.sessionService.Info(ctx.Context(), current)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *sessionController) ChatHistory(ctx *fiber.Ctx) error {
	current := c.cookie.Read(ctx)
	if current == "" {
		return serverutils.NewNotFound("no active session")
	}

	res, err := c.sessionService.History(ctx.Context(), current)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *sessionController) ClearChatHistory(ctx *fiber.Ctx) error {
	current := c.cookie.Read(ctx)
	if current == "" {
		return serverutils.NewNotFound("no active session")
	}

	if err := c.sessionService.ClearHistory(ctx.Context(), current); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat history cleared", nil))
}

func (c *sessionController) AvailableMindmaps(ctx *fiber.Ctx) error {
	res, err := c.sessionService.AvailableMindmaps(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
