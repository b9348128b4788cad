package k1sig

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names how a text payload is turned into bytes before hashing.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf8"
	EncodingHex     Encoding = "hex"
	EncodingBase64  Encoding = "base64"
	EncodingLatin1  Encoding = "latin1"
	EncodingUTF16LE Encoding = "utf16le"
)

// DefaultEncoding is used when no encoding is given.
const DefaultEncoding = EncodingUTF8

// ParseEncoding normalises an encoding name, accepting the common aliases.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf8", "utf-8":
		return EncodingUTF8, nil
	case "hex":
		return EncodingHex, nil
	case "base64":
		return EncodingBase64, nil
	case "latin1", "binary", "iso-8859-1":
		return EncodingLatin1, nil
	case "utf16le", "utf-16le", "ucs2", "ucs-2":
		return EncodingUTF16LE, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEncoding, name)
	}
}

// Bytes encodes text under enc.
func (enc Encoding) Bytes(text string) ([]byte, error) {
	switch enc {
	case "", EncodingUTF8:
		return []byte(text), nil
	case EncodingHex:
		b, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("failed to decode hex payload: %w", err)
		}
		return b, nil
	case EncodingBase64:
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
		}
		return b, nil
	case EncodingLatin1:
		b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("failed to encode latin1 payload: %w", err)
		}
		return b, nil
	case EncodingUTF16LE:
		b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("failed to encode utf16le payload: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, enc)
	}
}

// HashPayload returns the SHA-256 digest of data.
func HashPayload(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

func hashText(text string, enc Encoding) ([]byte, error) {
	data, err := enc.Bytes(text)
	if err != nil {
		return nil, err
	}
	return HashPayload(data), nil
}
