package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// SessionTTL is how long a session token stays valid after issue.
const SessionTTL = 7 * 24 * time.Hour

var (
	errInvalidFormat    = errors.New("invalid token format")
	errInvalidSignature = errors.New("invalid signature")
	errExpired          = errors.New("session expired")
)

// CreateSessionToken はオペレーターのメールアドレスから署名付きセッショントークンを生成する
func CreateSessionToken(email string, secret []byte, issuedAt time.Time) string {
	payload := []byte(email + "|" + strconv.FormatInt(issuedAt.Unix(), 10))
	return base64.URLEncoding.EncodeToString(payload) + "." + sign(payload, secret)
}

// VerifySessionToken はトークンを検証しメールアドレスを返す
func VerifySessionToken(token string, secret []byte, now time.Time) (string, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", errInvalidFormat
	}
	payload, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	if !hmac.Equal([]byte(sign(payload, secret)), []byte(parts[1])) {
		return "", errInvalidSignature
	}

	sep := strings.LastIndexByte(string(payload), '|')
	if sep <= 0 {
		return "", errInvalidFormat
	}
	issued, err := strconv.ParseInt(string(payload[sep+1:]), 10, 64)
	if err != nil {
		return "", errInvalidFormat
	}
	if now.Sub(time.Unix(issued, 0)) > SessionTTL {
		return "", errExpired
	}
	return string(payload[:sep]), nil
}

func sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

const sessionCookieName = "studio_session"
const minSecretLen = 32

// SessionCookieName はセッションクッキー名
func SessionCookieName() string {
	return sessionCookieName
}

// SessionSecretBytes は文字列からセッション署名用のバイト列を生成する（最低32バイト）
func SessionSecretBytes(s string) []byte {
	b := []byte(s)
	if len(b) < minSecretLen {
		out := make([]byte, minSecretLen)
		copy(out, b)
		return out
	}
	return b
}
