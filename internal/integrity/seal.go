package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"

	"matchwitness/internal/match"
)

// sealMACSize truncates the seal checksum to this many bytes.
const sealMACSize = 16

// CreateSeal binds a record's hash, a timestamp and the participant id
// into a compact tamper-evidence token. The checksum is derived
// deterministically from those same inputs via HKDF + HMAC; it is not a
// private-key signature and proves nothing about identity, only that the
// sealed fields have not drifted.
func CreateSeal(r *match.MatchRecord, participantID string, h match.IntegrityHash) (match.Seal, error) {
	return createSealAt(r, participantID, h, time.Now().UTC())
}

func createSealAt(r *match.MatchRecord, participantID string, h match.IntegrityHash, ts time.Time) (match.Seal, error) {
	payload := h.Hash + "|" + strconv.FormatInt(ts.Unix(), 10) + "|" + participantID

	mac, err := sealMAC(h.Hash, participantID, payload)
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return match.Seal(encoded + "." + hex.EncodeToString(mac)), nil
}

// VerifySeal recomputes the seal checksum from the current record hash
// and participant id and compares it against the stored token.
func VerifySeal(seal match.Seal, participantID string, h match.IntegrityHash) bool {
	payload, storedMAC, err := splitSeal(seal)
	if err != nil {
		return false
	}

	parts := strings.SplitN(payload, "|", 3)
	if len(parts) != 3 {
		return false
	}
	if parts[0] != h.Hash || parts[2] != participantID {
		return false
	}

	mac, err := sealMAC(h.Hash, participantID, payload)
	if err != nil {
		return false
	}
	return hmac.Equal(mac, storedMAC)
}

// SealTimestamp extracts the sealing time from a token.
func SealTimestamp(seal match.Seal) (time.Time, error) {
	payload, _, err := splitSeal(seal)
	if err != nil {
		return time.Time{}, err
	}
	parts := strings.SplitN(payload, "|", 3)
	if len(parts) != 3 {
		return time.Time{}, ErrSealFormat
	}
	unix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("seal timestamp: %w", err)
	}
	return time.Unix(unix, 0).UTC(), nil
}

// sealMAC derives the checksum key from the record hash and participant
// id with HKDF, then MACs the payload. Deterministic by construction.
func sealMAC(recordHash, participantID, payload string) ([]byte, error) {
	kdf := hkdf.New(sha256.New, []byte(recordHash), []byte(participantID), []byte("matchwitness-seal-v1"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)[:sealMACSize], nil
}

func splitSeal(seal match.Seal) (payload string, mac []byte, err error) {
	raw := string(seal)
	dot := strings.LastIndexByte(raw, '.')
	if dot <= 0 || dot == len(raw)-1 {
		return "", nil, ErrSealFormat
	}

	decoded, err := base64.RawURLEncoding.DecodeString(raw[:dot])
	if err != nil {
		return "", nil, ErrSealFormat
	}
	mac, err = hex.DecodeString(raw[dot+1:])
	if err != nil {
		return "", nil, ErrSealFormat
	}
	return string(decoded), mac, nil
}
