// Package rtc mints join credentials for the external real-time media
// provider. The provider validates tokens against the shared app
// certificate; media itself never touches this service.
package rtc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"temandifa-backend/internal/config"
)

// Issuer mints a short-lived join token authorizing one participant to
// join one media channel.
type Issuer interface {
	JoinToken(channelName string, uid uint32, expireAt time.Time) (string, error)
}

// HMACIssuer signs (appID, channel, uid, expiry) with the provider app
// certificate.
type HMACIssuer struct {
	appID string
	cert  []byte
}

func NewHMACIssuer(cfg config.RTCConfig) (*HMACIssuer, error) {
	if cfg.AppID == "" || cfg.AppCertificate == "" {
		return nil, errors.New("rtc app id and certificate are required")
	}
	return &HMACIssuer{appID: cfg.AppID, cert: []byte(cfg.AppCertificate)}, nil
}

func (i *HMACIssuer) JoinToken(channelName string, uid uint32, expireAt time.Time) (string, error) {
	if channelName == "" {
		return "", errors.New("channel name is required")
	}
	if uid == 0 {
		return "", errors.New("uid must be non-zero")
	}

	msg := fmt.Sprintf("%s:%s:%d:%d", i.appID, channelName, uid, expireAt.Unix())
	mac := hmac.New(sha256.New, i.cert)
	mac.Write([]byte(msg))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("v1.%s.%s", base64.RawURLEncoding.EncodeToString([]byte(msg)), sig), nil
}

// StaticIssuer returns a fixed token. Test double.
type StaticIssuer struct {
	Token string
	Err   error
}

func (s StaticIssuer) JoinToken(string, uint32, time.Time) (string, error) {
	return s.Token, s.Err
}
