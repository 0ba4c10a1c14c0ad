package controller

import (
	"fmt"
	"html"

	"github.com/gofiber/fiber/v2"

	"ai-speechcoach-be/internal/dto"
	"ai-speechcoach-be/internal/pkg/serverutils"
	"ai-speechcoach-be/internal/service"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	SharedOgPage(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
}

func NewSessionController(sessionService service.ISessionService) ISessionController {
	return &sessionController{
		sessionService: sessionService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Get("", c.List)
	h.Get("shared/og/:id/:key", c.SharedOgPage)
	h.Get(":id", c.Show)
}

func (c *sessionController) List(ctx *fiber.Ctx) error {
	var req dto.ListSessionsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.sessionService.ListByUser(ctx.Context(), req.UserId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("User sessions", res))
}

// Show serves both the owner view (?userId=) and the shared view (?key=).
// A share key wins when both are present: the caller is asking for the
// sanitized document.
func (c *sessionController) Show(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	if key := ctx.Query("key"); key != "" {
		res, err := c.sessionService.GetShared(ctx.Context(), id, key)
		if err != nil {
			return err
		}
		return ctx.JSON(serverutils.SuccessResponse("Shared session", res))
	}

	res, err := c.sessionService.GetForOwner(ctx.Context(), id, ctx.Query("userId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session detail", res))
}

// SharedOgPage renders a minimal HTML document whose Open Graph tags let
// social platforms unfurl a shared result link.
func (c *sessionController) SharedOgPage(ctx *fiber.Ctx) error {
	res, err := c.sessionService.GetShared(ctx.Context(), ctx.Params("id"), ctx.Params("key"))
	if err != nil {
		return err
	}

	title := "Speech Training Result"
	description := "I completed a live speech training session."
	if res.Report != nil {
		title = fmt.Sprintf("Scored %d/10 in %s", res.Report.OverallScore, res.Mode)
		if res.Report.SocialShareTexts.PerformanceCardSummary != "" {
			description = res.Report.SocialShareTexts.PerformanceCardSummary
		}
	}

	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<meta property="og:title" content="%s">
<meta property="og:description" content="%s">
<meta property="og:type" content="website">
<meta name="twitter:card" content="summary">
</head>
<body>
<h1>%s</h1>
<p>%s</p>
</body>
</html>`,
		html.EscapeString(title),
		html.EscapeString(title),
		html.EscapeString(description),
		html.EscapeString(title),
		html.EscapeString(description))

	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.SendString(page)
}
