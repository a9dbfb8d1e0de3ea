package domain

import "time"

type TrustedDevice struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	Trusted    bool      `json:"trusted"`
	LastUsedAt time.Time `json:"last_used_at"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DeviceInfo es la huella que el cliente envia en login y verify-otp.
type DeviceInfo struct {
	DeviceID   string `json:"deviceId" binding:"required,max=128"`
	DeviceName string `json:"deviceName" binding:"max=128"`
	UserAgent  string `json:"userAgent" binding:"max=512"`
	IPAddress  string `json:"ipAddress" binding:"max=64"`
}
