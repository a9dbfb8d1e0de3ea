package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brgykonek/internal/domain"
	"brgykonek/internal/service"
)

// UserHandler mantiene dependencias para endpoints de cuenta.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
	}
}

// Me maneja GET /api/auth/me.
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeError(c, h.logger, "me", domain.ErrTokenInvalid)
		return
	}
	user, err := h.userServ.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, h.logger, "me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type updateProfileRequest struct {
	FirstName    string `json:"first_name" binding:"max=100"`
	MiddleName   string `json:"middle_name" binding:"max=100"`
	LastName     string `json:"last_name" binding:"max=100"`
	MobileNumber string `json:"mobile_number" binding:"max=20"`
	HouseNumber  string `json:"house_number" binding:"max=50"`
	Street       string `json:"street" binding:"max=100"`
	Purok        string `json:"purok" binding:"max=50"`
	Barangay     string `json:"barangay" binding:"max=100"`
	City         string `json:"city" binding:"max=100"`
	Province     string `json:"province" binding:"max=100"`
}

// UpdateProfile maneja PUT /api/auth/update-profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeError(c, h.logger, "update profile", domain.ErrTokenInvalid)
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "update profile", err)
		return
	}

	user, err := h.userServ.UpdateProfile(c.Request.Context(), claims.UserID, domain.Profile{
		FirstName:    req.FirstName,
		MiddleName:   req.MiddleName,
		LastName:     req.LastName,
		MobileNumber: req.MobileNumber,
		Address: domain.Address{
			HouseNumber: req.HouseNumber,
			Street:      req.Street,
			Purok:       req.Purok,
			Barangay:    req.Barangay,
			City:        req.City,
			Province:    req.Province,
		},
	})
	if err != nil {
		writeError(c, h.logger, "update profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword maneja PUT /api/auth/change-password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeError(c, h.logger, "change password", domain.ErrTokenInvalid)
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "change password", err)
		return
	}

	err := h.userServ.ChangePassword(c.Request.Context(), claims.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeError(c, h.logger, "change password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// Approve maneja PUT /api/users/:id/approve (staff o admin).
func (h *UserHandler) Approve(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	user, err := h.userServ.Approve(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "approve user", err)
		return
	}
	claims, _ := GetAuthClaims(c)
	h.logger.Info("user approved", zap.String("user_id", user.ID), zap.String("approved_by", claims.UserID))
	c.JSON(http.StatusOK, gin.H{"message": "User approved", "user": user})
}
