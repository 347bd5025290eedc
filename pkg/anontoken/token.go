// Package anontoken validates the opaque session tokens minted by anonymous
// clients. A token is three dash-joined segments:
//
//	<43-char url-safe base64 random part>-<base36 epoch-ms mint time>-<8 hex integrity chars>
//
// Validation is purely structural and temporal; the integrity segment is
// checked for shape only, since the server holds no secret to recompute it.
package anontoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// randomPartLength is the unpadded url-safe base64 length of 32 bytes
	randomPartLength = 43

	integrityPartLength = 8
)

// Skew window for the embedded mint time: tokens may be up to one minute
// ahead of server time and up to seven days behind it, boundaries inclusive
const (
	MaxForwardSkew  = time.Minute
	MaxBackwardSkew = 7 * 24 * time.Hour
)

// Validate reports whether the token is structurally well formed and its
// embedded mint time falls inside the skew window. It never panics; any
// parse failure yields false.
func Validate(token string, now time.Time) bool {
	parts := strings.Split(token, "-")
	if len(parts) != 3 {
		return false
	}
	if len(parts[0]) != randomPartLength {
		return false
	}
	mintMs, err := strconv.ParseInt(parts[1], 36, 64)
	if err != nil || mintMs <= 0 {
		return false
	}
	if len(parts[2]) != integrityPartLength || !isHex(parts[2]) {
		return false
	}

	diff := now.UnixMilli() - mintMs
	return diff >= -MaxForwardSkew.Milliseconds() && diff <= MaxBackwardSkew.Milliseconds()
}

// Generate mints a token for the given time. The dash is the segment
// separator, so random parts that happen to contain one are redrawn.
func Generate(now time.Time) (string, error) {
	var randomPart string
	for {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate token random part: %w", err)
		}
		randomPart = base64.RawURLEncoding.EncodeToString(buf)
		if !strings.Contains(randomPart, "-") {
			break
		}
	}

	timestampPart := strconv.FormatInt(now.UnixMilli(), 36)
	sum := sha256.Sum256([]byte(randomPart + timestampPart))
	integrityPart := hex.EncodeToString(sum[:])[:integrityPartLength]

	return randomPart + "-" + timestampPart + "-" + integrityPart, nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
