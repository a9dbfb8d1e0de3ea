package http

import (
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"brgykonek/internal/domain"
	"brgykonek/internal/service"
)

const maxClearanceSize = 5 << 20

var clearanceExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// AuthHandler expone registro, login, OTP y cierre de sesion.
type AuthHandler struct {
	logger    *zap.Logger
	auth      *service.AuthService
	uploadDir string
}

func NewAuthHandler(logger *zap.Logger, auth *service.AuthService, uploadDir string) *AuthHandler {
	if strings.TrimSpace(uploadDir) == "" {
		uploadDir = "uploads"
	}
	return &AuthHandler{
		logger:    logger,
		auth:      auth,
		uploadDir: uploadDir,
	}
}

type registerRequest struct {
	Email        string `json:"email" form:"email" binding:"required,email"`
	Password     string `json:"password" form:"password" binding:"required"`
	FirstName    string `json:"first_name" form:"first_name" binding:"max=100"`
	MiddleName   string `json:"middle_name" form:"middle_name" binding:"max=100"`
	LastName     string `json:"last_name" form:"last_name" binding:"max=100"`
	MobileNumber string `json:"mobile_number" form:"mobile_number" binding:"max=20"`
	HouseNumber  string `json:"house_number" form:"house_number" binding:"max=50"`
	Street       string `json:"street" form:"street" binding:"max=100"`
	Purok        string `json:"purok" form:"purok" binding:"max=50"`
	Barangay     string `json:"barangay" form:"barangay" binding:"max=100"`
	City         string `json:"city" form:"city" binding:"max=100"`
	Province     string `json:"province" form:"province" binding:"max=100"`
}

// Register maneja POST /api/auth/register (JSON o multipart con "clearance").
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, h.logger, "register", err)
		return
	}

	var clearance string
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		file, err := c.FormFile("clearance")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			bindError(c, h.logger, "register", err)
			return
		}
		if file != nil {
			stored, err := h.saveClearance(c, file)
			if err != nil {
				writeError(c, h.logger, "register", err)
				return
			}
			clearance = stored
		}
	}

	res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
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
		ClearanceFile: clearance,
	})
	if err != nil {
		if clearance != "" {
			_ = os.Remove(filepath.Join(h.uploadDir, clearance))
		}
		writeError(c, h.logger, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *AuthHandler) saveClearance(c *gin.Context, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !clearanceExtensions[ext] {
		return "", domain.Validation("clearance must be a pdf, jpg or png file")
	}
	if file.Size > maxClearanceSize {
		return "", domain.Validation("clearance must be at most 5MB")
	}
	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		return "", err
	}
	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, name)); err != nil {
		return "", err
	}
	return name, nil
}

type loginRequest struct {
	Email          string             `json:"email" binding:"required,email"`
	Password       string             `json:"password" binding:"required"`
	DeviceInfo     *domain.DeviceInfo `json:"deviceInfo"`
	RememberDevice *bool              `json:"rememberDevice"`
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "login", err)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		DeviceInfo: withRequestInfo(c, req.DeviceInfo),
	})
	if err != nil {
		writeError(c, h.logger, "login", err)
		return
	}

	if res.RequiresOTP {
		c.JSON(http.StatusOK, gin.H{
			"message":     "OTP sent to your email",
			"requiresOTP": true,
			"user":        res.User,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

type requestOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Type  string `json:"type" binding:"required,oneof=registration login password_reset"`
}

// RequestOTP maneja POST /api/auth/request-otp.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req requestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "request otp", err)
		return
	}

	if _, err := h.auth.RequestOTP(c.Request.Context(), req.Email, domain.OTPType(req.Type)); err != nil {
		writeError(c, h.logger, "request otp", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP sent to your email"})
}

type verifyOTPRequest struct {
	Email          string             `json:"email" binding:"required,email"`
	OTPCode        string             `json:"otp_code" binding:"required,len=6,numeric"`
	Type           string             `json:"type" binding:"required,oneof=registration login password_reset"`
	DeviceInfo     *domain.DeviceInfo `json:"deviceInfo"`
	RememberDevice *bool              `json:"rememberDevice"`
}

// VerifyOTP maneja POST /api/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "verify otp", err)
		return
	}

	res, err := h.auth.VerifyOTP(c.Request.Context(), service.VerifyOTPInput{
		Email:          req.Email,
		Code:           req.OTPCode,
		Type:           domain.OTPType(req.Type),
		DeviceInfo:     withRequestInfo(c, req.DeviceInfo),
		RememberDevice: req.RememberDevice,
	})
	if err != nil {
		writeError(c, h.logger, "verify otp", err)
		return
	}

	body := gin.H{"success": true, "message": "OTP verified successfully"}
	if res.Token != "" {
		body["token"] = res.Token
		body["user"] = res.User
	}
	c.JSON(http.StatusOK, body)
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTPCode     string `json:"otp_code" binding:"required,len=6,numeric"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ResetPassword maneja POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "reset password", err)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.OTPCode, req.NewPassword); err != nil {
		writeError(c, h.logger, "reset password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// Logout maneja POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeError(c, h.logger, "logout", domain.ErrTokenInvalid)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		writeError(c, h.logger, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// LogoutAll maneja POST /api/auth/logout-all.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		writeError(c, h.logger, "logout all", domain.ErrTokenInvalid)
		return
	}
	if err := h.auth.LogoutAll(c.Request.Context(), claims); err != nil {
		writeError(c, h.logger, "logout all", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out from all devices"})
}

// withRequestInfo completa userAgent e ipAddress con los datos del request.
func withRequestInfo(c *gin.Context, info *domain.DeviceInfo) *domain.DeviceInfo {
	if info == nil {
		return nil
	}
	out := *info
	if strings.TrimSpace(out.UserAgent) == "" {
		out.UserAgent = c.Request.UserAgent()
	}
	if strings.TrimSpace(out.IPAddress) == "" {
		out.IPAddress = c.ClientIP()
	}
	return &out
}
