package k1sig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEncoding(t *testing.T) {
	tests := map[string]Encoding{
		"":         EncodingUTF8,
		"UTF-8":    EncodingUTF8,
		"hex":      EncodingHex,
		"base64":   EncodingBase64,
		"binary":   EncodingLatin1,
		"latin1":   EncodingLatin1,
		" ucs2 ":   EncodingUTF16LE,
		"utf-16le": EncodingUTF16LE,
	}
	for name, want := range tests {
		got, err := ParseEncoding(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseEncoding("ascii85")
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestEncoding_Bytes(t *testing.T) {
	tests := []struct {
		enc  Encoding
		text string
		want []byte
	}{
		{EncodingUTF8, "é", []byte{0xc3, 0xa9}},
		{EncodingLatin1, "é", []byte{0xe9}},
		{EncodingUTF16LE, "hi", []byte{'h', 0, 'i', 0}},
		{EncodingHex, "00ff", []byte{0x00, 0xff}},
		{EncodingBase64, "AP8=", []byte{0x00, 0xff}},
	}
	for _, tt := range tests {
		got, err := tt.enc.Bytes(tt.text)
		require.NoError(t, err, tt.enc)
		assert.Equal(t, tt.want, got, tt.enc)
	}
}

func TestEncoding_BytesErrors(t *testing.T) {
	_, err := EncodingHex.Bytes("xyz")
	assert.Error(t, err)

	_, err = EncodingBase64.Bytes("!!")
	assert.Error(t, err)

	_, err = EncodingLatin1.Bytes("日本")
	assert.Error(t, err)

	_, err = Encoding("ebcdic").Bytes("x")
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestHashPayload(t *testing.T) {
	assert.Equal(t,
		mustHex(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"),
		HashPayload([]byte("hello")))
}
