package ui

import (
	"github.com/gin-gonic/gin"
)

const (
	flashCookie = "flash"
	flashMaxAge = 60
)

// setFlash stores a one-shot message for the next page render.
// gin escapes the cookie value, so any text is safe.
func setFlash(c *gin.Context, message string) {
	c.SetCookie(flashCookie, message, flashMaxAge, "/", "", false, true)
}

// popFlash returns the pending message and clears it
func popFlash(c *gin.Context) string {
	message, err := c.Cookie(flashCookie)
	if err != nil || message == "" {
		return ""
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	return message
}
