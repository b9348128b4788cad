package base58check

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compressed public key of the well-known development key
// 5KQwrPbwdL6PhXujxW37FSSQZ1JiwsST4cqQzDeyXtP79zkvFD3.
const devPubKeyHex = "02c0ded2bc1f1305fb0faac5e6c03ee3a1924234985427b6167ca569d13df435cf"

func TestEncode_KnownVectors(t *testing.T) {
	pub, err := hex.DecodeString(devPubKeyHex)
	require.NoError(t, err)

	assert.Equal(t, "6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5BoDq63", Encode(pub, "K1"))
	assert.Equal(t, "6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CV", Encode(pub, ""))
}

func TestDecode_RoundTrip(t *testing.T) {
	for _, keyType := range []string{"K1", "R1", ""} {
		t.Run("type_"+keyType, func(t *testing.T) {
			data := []byte{0x00, 0x00, 0x01, 0x02, 0xff}
			decoded, err := Decode(Encode(data, keyType), keyType)
			require.NoError(t, err)
			assert.Equal(t, data, decoded)
		})
	}
}

func TestDecode_WrongKeyType(t *testing.T) {
	text := Encode([]byte("payload"), "K1")

	_, err := Decode(text, "R1")
	assert.True(t, errors.Is(err, ErrChecksum))
}

func TestDecode_Corrupted(t *testing.T) {
	text := Encode([]byte("payload"), "K1")
	last := text[len(text)-1]
	replacement := byte('2')
	if last == replacement {
		replacement = '3'
	}

	_, err := Decode(text[:len(text)-1]+string(replacement), "K1")
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestDecode_NotBase58(t *testing.T) {
	for _, text := range []string{"", "0OIl", "abc"} {
		_, err := Decode(text, "K1")
		assert.ErrorIs(t, err, ErrChecksum, "input %q", text)
	}
}

func TestChecksum_Size(t *testing.T) {
	assert.Len(t, Checksum(nil, "K1"), ChecksumSize)
}
