package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// VisitorCookieName identifies a browser session. The cookie carries no
// account semantics; it only scopes form state and history.
const VisitorCookieName = "tryon_visitor"

func VisitorSessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(VisitorCookieName)
		if err == nil && cookie.Value != "" {
			c.Set("visitorID", cookie.Value)
			return next(c)
		}

		visitorID := uuid.NewString()
		c.SetCookie(&http.Cookie{
			Name:     VisitorCookieName,
			Value:    visitorID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		c.Set("visitorID", visitorID)
		return next(c)
	}
}

func visitorID(c echo.Context) string {
	id, _ := c.Get("visitorID").(string)
	return id
}
