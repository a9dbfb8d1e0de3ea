package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"brgykonek/internal/device"
	"brgykonek/internal/domain"
	"brgykonek/internal/repository"
)

const (
	rememberedDeviceTTL = 30 * 24 * time.Hour
	sessionDeviceTTL    = 24 * time.Hour
)

// DeviceService decide que dispositivos pueden saltar el OTP.
type DeviceService struct {
	logger  *zap.Logger
	devices repository.DeviceRepository
	now     func() time.Time
}

func NewDeviceService(logger *zap.Logger, devices repository.DeviceRepository) *DeviceService {
	return &DeviceService{
		logger:  logger,
		devices: devices,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CheckTrust es verdadero solo para un registro vigente y marcado como confiable.
// Actualiza last_used_at cuando confia.
func (s *DeviceService) CheckTrust(ctx context.Context, userID, deviceID string) (bool, error) {
	deviceID = strings.TrimSpace(deviceID)
	if userID == "" || deviceID == "" {
		return false, nil
	}
	now := s.now()
	d, err := s.devices.FindActive(ctx, userID, deviceID, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("find device: %w", err)
	}
	if !d.Trusted || !now.Before(d.ExpiresAt) {
		return false, nil
	}
	if err := s.devices.TouchLastUsed(ctx, d.ID, now); err != nil {
		s.logger.Warn("touch device failed", zap.Error(err), zap.String("device_id", d.DeviceID))
	}
	return true, nil
}

// CreateDevice registra el dispositivo: 30 dias si remember, si no 1 dia.
func (s *DeviceService) CreateDevice(ctx context.Context, userID string, info domain.DeviceInfo, remember bool) (domain.TrustedDevice, error) {
	deviceID := strings.TrimSpace(info.DeviceID)
	if deviceID == "" {
		return domain.TrustedDevice{}, domain.Validation("deviceInfo.deviceId is required")
	}

	name := strings.TrimSpace(info.DeviceName)
	if name == "" {
		name = device.Name(info.UserAgent)
	}

	ttl := sessionDeviceTTL
	if remember {
		ttl = rememberedDeviceTTL
	}

	now := s.now()
	d, err := s.devices.Upsert(ctx, domain.TrustedDevice{
		ID:         uuid.NewString(),
		UserID:     userID,
		DeviceID:   deviceID,
		DeviceName: name,
		UserAgent:  strings.TrimSpace(info.UserAgent),
		IPAddress:  strings.TrimSpace(info.IPAddress),
		Trusted:    remember,
		LastUsedAt: now,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	})
	if err != nil {
		return domain.TrustedDevice{}, fmt.Errorf("save device: %w", err)
	}
	s.logger.Info("device registered",
		zap.String("user_id", userID),
		zap.String("device_name", d.DeviceName),
		zap.Bool("trusted", d.Trusted),
	)
	return d, nil
}

func (s *DeviceService) List(ctx context.Context, userID string) ([]domain.TrustedDevice, error) {
	return s.devices.ListActive(ctx, userID, s.now())
}

// Revoke es idempotente.
func (s *DeviceService) Revoke(ctx context.Context, deviceID, userID string) error {
	if _, err := s.devices.Delete(ctx, strings.TrimSpace(deviceID), userID); err != nil {
		return fmt.Errorf("revoke device: %w", err)
	}
	return nil
}

// RevokeAll es idempotente.
func (s *DeviceService) RevokeAll(ctx context.Context, userID string) error {
	n, err := s.devices.DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke devices: %w", err)
	}
	s.logger.Info("devices revoked", zap.String("user_id", userID), zap.Int64("count", n))
	return nil
}

func (s *DeviceService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.devices.DeleteExpired(ctx, s.now())
}

// RunJanitor purga dispositivos vencidos cada interval hasta que ctx se cancela.
func (s *DeviceService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.logger.Warn("purge expired devices failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("expired devices purged", zap.Int64("count", n))
			}
		}
	}
}
