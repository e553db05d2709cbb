package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"skillchat/internal/config"
	"skillchat/internal/middleware"
	"skillchat/internal/models"
	"skillchat/internal/security"
	"skillchat/internal/services"
	"skillchat/internal/slots"
)

// CalendarHandler exposes the Google Calendar connection lifecycle and
// direct event creation.
type CalendarHandler struct {
	calendar    *services.CalendarService
	userService *services.UserService
	frontendURL string
	metrics     *services.Metrics
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(cfg *config.Config, calendar *services.CalendarService, userService *services.UserService, metrics *services.Metrics) *CalendarHandler {
	return &CalendarHandler{
		calendar:    calendar,
		userService: userService,
		frontendURL: cfg.FrontendURL,
		metrics:     metrics,
	}
}

// HandleAuth returns the provider authorization URL for the caller.
// GET /api/calendar/auth
func (h *CalendarHandler) HandleAuth(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	url := h.calendar.AuthorizationURL(userID)
	if h.metrics != nil {
		h.metrics.AuthURLsIssued.Inc()
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleCallback completes the OAuth flow. The request comes from the
// provider's redirect, so there is no bearer token; the caller is
// authenticated by the state's HMAC signature, minted only for
// authenticated /api/calendar/auth calls. A forged state naming a victim
// cannot carry a valid signature and fails before any exchange.
// GET /api/calendar/callback?code=...&state=...
func (h *CalendarHandler) HandleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")

	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing authorization code",
		})
	}

	userID, err := h.calendar.UserFromState(state)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid state parameter",
		})
	}

	// The signed identity must still name a live account.
	user, err := h.userService.GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid state parameter",
		})
	}

	if err := h.calendar.CompleteAuthorization(c.Context(), code, state, user.ID); err != nil {
		if errors.Is(err, security.ErrInvalidState) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid state parameter",
			})
		}
		log.Printf("❌ [CALENDAR] Authorization failed for user %s: %v", user.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to complete Google Calendar authorization",
		})
	}

	log.Printf("✅ [CALENDAR] Connected Google Calendar for user %s", user.ID)
	return c.Redirect(h.frontendURL+"/chat?calendar_connected=success", fiber.StatusSeeOther)
}

// HandleStatus reports whether the caller has a stored calendar credential.
// GET /api/calendar/status
func (h *CalendarHandler) HandleStatus(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	connected, err := h.calendar.IsConnected(c.Context(), userID)
	if err != nil {
		log.Printf("❌ [CALENDAR] Status check failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check calendar status",
		})
	}

	return c.JSON(fiber.Map{"connected": connected})
}

// HandleAddEvent creates a calendar event from a free-text message without
// going through skill dispatch.
// POST /api/calendar/addevent
func (h *CalendarHandler) HandleAddEvent(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req models.AddEventRequest
	if err := c.BodyParser(&req); err != nil || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message is required",
		})
	}

	token, err := h.calendar.ValidAccessToken(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNotConnected) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":        "Google Calendar is not connected",
				"requiresAuth": true,
			})
		}
		log.Printf("❌ [CALENDAR] Token resolution failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":        "Google Calendar authorization is no longer valid",
			"requiresAuth": true,
		})
	}

	event, err := h.calendar.CreateEvent(c.Context(), token, slots.Extract(req.Message))
	if err != nil {
		if errors.Is(err, services.ErrAuthRequired) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":        "Google Calendar authorization is no longer valid",
				"requiresAuth": true,
			})
		}
		log.Printf("❌ [CALENDAR] Event creation failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to create calendar event",
		})
	}

	return c.JSON(models.AddEventResponse{
		Success: true,
		Event:   event,
	})
}
