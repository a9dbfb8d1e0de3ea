package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brgykonek/internal/domain"
	"brgykonek/internal/service"
)

// DeviceHandler lista y revoca dispositivos de confianza del usuario autenticado.
type DeviceHandler struct {
	logger  *zap.Logger
	devices *service.DeviceService
}

func NewDeviceHandler(logger *zap.Logger, devices *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{logger: logger, devices: devices}
}

// List maneja GET /api/auth/devices.
func (h *DeviceHandler) List(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeError(c, h.logger, "list devices", domain.ErrTokenInvalid)
		return
	}
	devices, err := h.devices.List(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, h.logger, "list devices", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// Revoke maneja DELETE /api/auth/devices/:deviceId.
func (h *DeviceHandler) Revoke(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeError(c, h.logger, "revoke device", domain.ErrTokenInvalid)
		return
	}
	if err := h.devices.Revoke(c.Request.Context(), c.Param("deviceId"), claims.UserID); err != nil {
		writeError(c, h.logger, "revoke device", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device removed"})
}
