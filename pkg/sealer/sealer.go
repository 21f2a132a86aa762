// Package sealer mints opaque invite tokens for room shares. A token binds a
// share id to its room id under AES-GCM, so it is tamper-evident and needs no
// server-side storage.
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

type Sealer struct {
	key []byte
}

// New decodes a base64 key. The key must decode to 16, 24 or 32 bytes.
func New(base64Key string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("invalid sealer key encoding: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("sealer key must be 16, 24 or 32 bytes, got %d", len(key))
	}
	return &Sealer{key: key}, nil
}

func (s *Sealer) CreateInviteToken(shareID, roomID string) (string, error) {
	plaintext := []byte(shareID + ":" + roomID)

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

func (s *Sealer) ParseInviteToken(token string) (shareID, roomID string, err error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", err
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", err
	}

	nonceSize := aesgcm.NonceSize()
	if len(data) < nonceSize {
		return "", "", fmt.Errorf("invalid token format")
	}
	nonce := data[:nonceSize]
	ciphertext := data[nonceSize:]

	pt, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", "", err
	}

	parts := strings.SplitN(string(pt), ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid token format")
	}

	return parts[0], parts[1], nil
}
