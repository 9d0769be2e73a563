// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package vnc

import (
	"context"
	"encoding/binary"
	"net"
	"time"
)

// ClientAuth defines the interface for VNC authentication methods.
type ClientAuth interface {
	SecurityType() uint8
	Handshake(ctx context.Context, conn net.Conn) error
	String() string
}

// ClientAuthNone implements the "None" authentication method (security type 1).
type ClientAuthNone struct {
	logger Logger
}

// SecurityType returns the security type identifier for None authentication.
func (c *ClientAuthNone) SecurityType() uint8 {
	return 1
}

// Handshake performs the None authentication handshake.
func (c *ClientAuthNone) Handshake(ctx context.Context, conn net.Conn) error {
	select {
	case <-ctx.Done():
		if c.logger != nil {
			c.logger.Warn("None authentication cancelled by context")
		}
		return timeoutError("ClientAuthNone.Handshake", "authentication cancelled", ctx.Err())
	default:
	}

	if c.logger != nil {
		c.logger.Debug("Performing None authentication handshake")
		c.logger.Info("None authentication completed successfully")
	}

	return nil
}

// String returns a human-readable description of the authentication method.
func (c *ClientAuthNone) String() string {
	return "None"
}

// SetLogger sets the logger for the authentication method.
func (c *ClientAuthNone) SetLogger(logger Logger) {
	c.logger = logger
}

// PasswordAuth implements VNC Authentication (security type 2).
type PasswordAuth struct {
	Password     string
	logger       Logger
	secureMemory *SecureMemory
}

// NewPasswordAuth creates a new PasswordAuth instance with enhanced security features.
func NewPasswordAuth(password string) *PasswordAuth {
	return &PasswordAuth{
		Password:     password,
		secureMemory: &SecureMemory{},
	}
}

// SecurityType returns the security type identifier for VNC Password authentication.
func (p *PasswordAuth) SecurityType() uint8 {
	return 2
}

// Handshake performs the VNC Authentication handshake with the server.
func (p *PasswordAuth) Handshake(ctx context.Context, c net.Conn) error {
	select {
	case <-ctx.Done():
		if p.logger != nil {
			p.logger.Warn("VNC authentication cancelled by context")
		}
		return timeoutError("PasswordAuth.Handshake", "authentication cancelled", ctx.Err())
	default:
	}

	if p.logger != nil {
		p.logger.Debug("Starting VNC password authentication handshake")

		if len(p.Password) > VNCMaxPasswordLength {
			p.logger.Warn("Password exceeds VNC maximum length, will be truncated for DES encryption",
				Field{Key: "password_length", Value: len(p.Password)})
		}

		if len(p.Password) == 0 {
			p.logger.Warn("Empty password provided for VNC authentication")
		}
	}

	if p.secureMemory == nil {
		p.secureMemory = &SecureMemory{}
	}

	memProtection := newMemoryProtection()
	challengeBuffer := memProtection.NewProtectedBytes(VNCChallengeSize)
	defer challengeBuffer.Clear()

	if err := binary.Read(c, binary.BigEndian, challengeBuffer.Data()); err != nil {
		if p.logger != nil {
			p.logger.Error("Failed to read authentication challenge from server",
				Field{Key: "error", Value: err})
		}
		return networkError("PasswordAuth.Handshake", "failed to read authentication challenge", err)
	}

	if p.logger != nil {
		p.logger.Debug("Received authentication challenge from server",
			Field{Key: "challenge_length", Value: challengeBuffer.Size()})
	}

	select {
	case <-ctx.Done():
		if p.logger != nil {
			p.logger.Warn("VNC authentication cancelled during encryption")
		}
		return timeoutError("PasswordAuth.Handshake", "authentication cancelled during encryption", ctx.Err())
	default:
	}

	crypted, err := p.encrypt(p.Password, challengeBuffer.Data())
	if err != nil {
		if p.logger != nil {
			p.logger.Error("Failed to encrypt password challenge",
				Field{Key: "error", Value: err})
		}
		return authenticationError("PasswordAuth.Handshake", "failed to encrypt password", err)
	}

	responseBuffer := memProtection.NewProtectedBytes(len(crypted))
	defer responseBuffer.Clear()

	if err := responseBuffer.Copy(crypted); err != nil {
		if p.logger != nil {
			p.logger.Error("Failed to copy encrypted response to protected buffer",
				Field{Key: "error", Value: err})
		}
		return authenticationError("PasswordAuth.Handshake", "failed to prepare encrypted response", err)
	}

	if p.secureMemory != nil {
		p.secureMemory.ClearBytes(crypted)
	}

	if p.logger != nil {
		p.logger.Debug("Successfully encrypted authentication challenge")
	}

	if err := binary.Write(c, binary.BigEndian, responseBuffer.Data()); err != nil {
		if p.logger != nil {
			p.logger.Error("Failed to send encrypted password response",
				Field{Key: "error", Value: err})
		}
		return networkError("PasswordAuth.Handshake", "failed to send encrypted password", err)
	}

	if p.logger != nil {
		p.logger.Debug("VNC password authentication handshake completed")
	}

	return nil
}

// String returns a human-readable description of the authentication method.
func (p *PasswordAuth) String() string {
	return "VNC Password"
}

// SetLogger sets the logger for the authentication method.
func (p *PasswordAuth) SetLogger(logger Logger) {
	p.logger = logger
}

// ClearPassword securely clears the password from memory.
func (p *PasswordAuth) ClearPassword() {
	if p.secureMemory != nil && p.Password != "" {
		p.Password = p.secureMemory.ClearString(p.Password)
	}
}

// encrypt performs DES encryption of the challenge using the provided password.
func (p *PasswordAuth) encrypt(key string, bytes []byte) ([]byte, error) {
	secureCipher := newSecureDESCipher()
	timingProtection := newTimingProtection()

	var result []byte
	var encryptErr error

	err := timingProtection.ConstantTimeAuthentication(func() error {
		var err error
		result, err = secureCipher.EncryptVNCChallenge(key, bytes)
		encryptErr = err
		return err
	}, 50*time.Millisecond)

	if err != nil {
		return nil, err
	}

	if encryptErr != nil {
		return nil, encryptErr
	}

	return result, nil
}

