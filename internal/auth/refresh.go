package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTokenInvalid covers every refresh/activation token failure: malformed,
// tampered, expired or bound to a different account. Callers must treat it as
// an authentication failure, never as a fatal condition.
var ErrTokenInvalid = errors.New("invalid or expired token")

const refreshRandomBytes = 64

// RefreshProtector encrypts time-limited opaque tokens. The payload is
// base64(random)|accountID wrapped in an envelope carrying the expiry, sealed
// with AES-GCM and signed with HMAC-SHA256. Keys are derived from the shared
// secret and a purpose string, so tokens from one purpose never validate for
// another.
type RefreshProtector struct {
	encryptionKey []byte
	hmacKey       []byte
	ttl           time.Duration
	now           Clock
}

// NewRefreshProtector derives purpose-scoped keys from the shared secret.
func NewRefreshProtector(secret, purpose string, ttl time.Duration, now Clock) *RefreshProtector {
	encKey := sha256.Sum256([]byte(secret + ":" + purpose + ":enc"))
	macKey := sha256.Sum256([]byte(secret + ":" + purpose + ":mac"))
	if now == nil {
		now = time.Now
	}
	return &RefreshProtector{
		encryptionKey: encKey[:],
		hmacKey:       macKey[:],
		ttl:           ttl,
		now:           now,
	}
}

type protectedEnvelope struct {
	Payload   string `json:"p"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Issue generates 64 bytes of secure random data and protects it together
// with the account id for the configured validity window.
func (rp *RefreshProtector) Issue(accountID string) (string, error) {
	random := make([]byte, refreshRandomBytes)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	payload := base64.StdEncoding.EncodeToString(random) + "|" + accountID
	return rp.protect(payload)
}

// Unprotect decrypts a token and splits it into its random part and account
// id. All failure modes collapse into ErrTokenInvalid.
func (rp *RefreshProtector) Unprotect(token string) (string, string, error) {
	payload, err := rp.unprotect(token)
	if err != nil {
		return "", "", err
	}
	random, accountID, found := strings.Cut(payload, "|")
	if !found || random == "" || accountID == "" {
		return "", "", ErrTokenInvalid
	}
	return random, accountID, nil
}

func (rp *RefreshProtector) protect(payload string) (string, error) {
	issuedAt := rp.now().UTC()
	envelope := protectedEnvelope{
		Payload:   payload,
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: issuedAt.Add(rp.ttl).Unix(),
	}
	plaintext, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("marshal token envelope: %w", err)
	}

	block, err := aes.NewCipher(rp.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)

	mac := hmac.New(sha256.New, rp.hmacKey)
	mac.Write(ciphertext)
	signature := mac.Sum(nil)

	return base64.URLEncoding.EncodeToString(append(signature, ciphertext...)), nil
}

func (rp *RefreshProtector) unprotect(token string) (string, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrTokenInvalid
	}
	if len(data) < sha256.Size {
		return "", ErrTokenInvalid
	}

	signature := data[:sha256.Size]
	ciphertext := data[sha256.Size:]

	mac := hmac.New(sha256.New, rp.hmacKey)
	mac.Write(ciphertext)
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return "", ErrTokenInvalid
	}

	block, err := aes.NewCipher(rp.encryptionKey)
	if err != nil {
		return "", ErrTokenInvalid
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrTokenInvalid
	}
	if len(ciphertext) < gcm.NonceSize() {
		return "", ErrTokenInvalid
	}

	nonce := ciphertext[:gcm.NonceSize()]
	plaintext, err := gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
	if err != nil {
		return "", ErrTokenInvalid
	}

	var envelope protectedEnvelope
	if err := json.Unmarshal(plaintext, &envelope); err != nil {
		return "", ErrTokenInvalid
	}
	if rp.now().UTC().Unix() >= envelope.ExpiresAt {
		return "", ErrTokenInvalid
	}
	return envelope.Payload, nil
}
