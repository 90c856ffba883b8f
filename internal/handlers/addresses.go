package handlers

import (
	"net/http"

	"ridealong/internal/services"

	"github.com/gin-gonic/gin"
)

// SearchAddresses returns up to 20 stored addresses matching ?search=
func (h *Handler) SearchAddresses(c *gin.Context) {
	matches, err := services.SearchAddresses(h.db.WithContext(c.Request.Context()), c.Query("search"))
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to search addresses", err)
		return
	}
	c.JSON(http.StatusOK, matches)
}
