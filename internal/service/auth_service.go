package service

import (
	"strings"

	"quiz_bank_backend/internal/config"
	"quiz_bank_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
)

// AuthService 单用户部署：设备密钥换取 JWT
type AuthService struct {
	Cfg *config.Config
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{Cfg: cfg}
}

func (s *AuthService) Enabled() bool {
	return s.Cfg.Auth.Enabled
}

// IssueToken 校验设备密钥（bcrypt 哈希比对）后签发令牌
func (s *AuthService) IssueToken(deviceID, deviceKey string) (string, error) {
	if !s.Enabled() {
		return "", util.ErrAuthDisabled
	}
	if s.Cfg.Auth.DeviceKeyHash == "" || deviceKey == "" {
		return "", util.ErrInvalidDeviceKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.Cfg.Auth.DeviceKeyHash), []byte(deviceKey)); err != nil {
		return "", util.ErrInvalidDeviceKey
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = "default"
	}
	return util.GenerateJWT(deviceID, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
}

// HashDeviceKey 生成写入配置文件的 device_key_hash
func HashDeviceKey(deviceKey string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(deviceKey), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
