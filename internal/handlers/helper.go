package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// idParam reads a path id, writing a 400 when it is blank.
func (h *BaseHandler) idParam(c *gin.Context, param string) (string, bool) {
	id := strings.TrimSpace(c.Param(param))
	if id == "" {
		h.respondError(c, http.StatusBadRequest, "Invalid "+param, "ID cannot be empty")
		return "", false
	}
	return id, true
}

// intQuery reads an optional integer query value. Malformed values are a 400.
func (h *BaseHandler) intQuery(c *gin.Context, param string, defaultValue int) (int, bool) {
	raw := c.Query(param)
	if raw == "" {
		return defaultValue, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		h.respondError(c, http.StatusBadRequest, "Invalid "+param, "must be a non-negative integer")
		return 0, false
	}
	return value, true
}

// bindJSON decodes the body, writing a 400 on malformed payloads.
func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return false
	}
	return true
}
