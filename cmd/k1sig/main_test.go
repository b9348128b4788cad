package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/k1sig/pkg/k1sig"
)

const (
	devPrivateKey   = "PVT_K1_2bfGi9rYsXQSXXTvJbDAPhHLQUojjaNLomdm3cEJ1XTzMqUt3V"
	devPublicKey    = "PUB_K1_6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5BoDq63"
	devLegacyKey    = "EOS6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CV"
	helloSigHex     = "20dc5ccf83f8886070d5fc76a68cd4751efed85066b89e9212afe8640f8e492b6b4f139b87d69a06799f5ffa0f6e8f99b48540f1c80556d700f1da94e31e27c65b"
	helloSigText    = "SIG_K1_KyaSTpvFdrUBwP4xA8CWznPPJUmNuzG4LVK7M73inWEpisXZ4ketk6xUmJfgyDeokiMAd89jm3f4dc9gPRpTCeeBCbDQn9"
	helloDigestHex  = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	fixturesRelPath = "../../fixtures"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(context.Background(), append([]string{"k1sig", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestSign(t *testing.T) {
	t.Run("text output", func(t *testing.T) {
		out, err := run(t, "sign", "--key", devPrivateKey, "hello")
		require.NoError(t, err)
		assert.Equal(t, helloSigText, strings.TrimSpace(out))
	})

	t.Run("hex output", func(t *testing.T) {
		out, err := run(t, "sign", "--key", devPrivateKey, "--format", "hex", "hello")
		require.NoError(t, err)
		assert.Equal(t, helloSigHex, strings.TrimSpace(out))
	})

	t.Run("hex encoded payload", func(t *testing.T) {
		out, err := run(t, "sign", "--key", devPrivateKey, "--encoding", "hex", "68656c6c6f")
		require.NoError(t, err)
		assert.Equal(t, helloSigText, strings.TrimSpace(out))
	})

	t.Run("precomputed digest", func(t *testing.T) {
		out, err := run(t, "sign", "--key", devPrivateKey, "--digest", helloDigestHex)
		require.NoError(t, err)
		assert.Equal(t, helloSigText, strings.TrimSpace(out))
	})

	t.Run("key from environment", func(t *testing.T) {
		t.Setenv("K1SIG_PRIVATE_KEY", devPrivateKey)

		out, err := run(t, "sign", "hello")
		require.NoError(t, err)
		assert.Equal(t, helloSigText, strings.TrimSpace(out))
	})

	t.Run("missing payload", func(t *testing.T) {
		_, err := run(t, "sign", "--key", devPrivateKey)
		assert.Error(t, err)
	})

	t.Run("bad encoding", func(t *testing.T) {
		_, err := run(t, "sign", "--key", devPrivateKey, "--encoding", "ebcdic", "hello")
		assert.ErrorIs(t, err, k1sig.ErrUnsupportedEncoding)
	})
}

func TestVerify(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out, err := run(t, "verify", "--signature", helloSigText, "--public-key", devPublicKey, "hello")
		require.NoError(t, err)
		assert.Equal(t, "valid", strings.TrimSpace(out))
	})

	t.Run("legacy key", func(t *testing.T) {
		out, err := run(t, "verify", "-s", helloSigText, "-p", devLegacyKey, "hello")
		require.NoError(t, err)
		assert.Equal(t, "valid", strings.TrimSpace(out))
	})

	t.Run("wrong payload", func(t *testing.T) {
		out, err := run(t, "verify", "--signature", helloSigText, "--public-key", devPublicKey, "goodbye")
		assert.ErrorIs(t, err, errInvalidSignature)
		assert.Equal(t, "invalid", strings.TrimSpace(out))
	})

	t.Run("corrupt signature", func(t *testing.T) {
		corrupt := helloSigText[:len(helloSigText)-1] + "8"
		_, err := run(t, "verify", "--signature", corrupt, "--public-key", devPublicKey, "hello")
		assert.ErrorIs(t, err, k1sig.ErrChecksum)
	})
}

func TestRecover(t *testing.T) {
	out, err := run(t, "recover", "--signature", helloSigText, "--legacy", "hello")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, devPublicKey, lines[0])
	assert.Equal(t, devLegacyKey, lines[1])
}

func TestConvert(t *testing.T) {
	out, err := run(t, "convert", "--from", "hex", "--to", "text", helloSigHex)
	require.NoError(t, err)
	assert.Equal(t, helloSigText, strings.TrimSpace(out))

	out, err = run(t, "convert", "--to", "json", helloSigText)
	require.NoError(t, err)
	raw := strings.TrimSpace(out)
	assert.Contains(t, raw, `"i":32`)

	out, err = run(t, "convert", "--from", "json", "--to", "hex", raw)
	require.NoError(t, err)
	assert.Equal(t, helloSigHex, strings.TrimSpace(out))

	_, err = run(t, "convert", "--from", "base32", helloSigHex)
	assert.Error(t, err)
}

func TestBatch(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		out, err := run(t, "batch", "--input", filepath.Join(fixturesRelPath, "signed_records.csv"), "--workers", "2")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.Len(t, lines, 3)
		for _, line := range lines {
			assert.Contains(t, line, "\tvalid\t")
		}
	})

	t.Run("mixed results", func(t *testing.T) {
		out, err := run(t, "batch", "--input", filepath.Join(fixturesRelPath, "signed_records.json"))
		assert.ErrorIs(t, err, errBatchFailed)
		assert.Contains(t, out, "\tinvalid\t")
		assert.Contains(t, out, "\terror\t")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := run(t, "batch", "--input", "records.txt")
		assert.Error(t, err)
	})
}

func TestKeys(t *testing.T) {
	t.Run("show", func(t *testing.T) {
		out, err := run(t, "keys", "show", "--key", "5KQwrPbwdL6PhXujxW37FSSQZ1JiwsST4cqQzDeyXtP79zkvFD3")
		require.NoError(t, err)
		assert.Contains(t, out, devPrivateKey)
		assert.Contains(t, out, devPublicKey)
		assert.Contains(t, out, devLegacyKey)
	})

	t.Run("generate", func(t *testing.T) {
		out, err := run(t, "keys", "generate")
		require.NoError(t, err)
		assert.Contains(t, out, "PVT_K1_")
		assert.Contains(t, out, "PUB_K1_")
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, k1sig.DefaultEncoding, cfg.Encoding)
		assert.Equal(t, k1sig.DefaultKeyCacheSize, cfg.KeyCacheSize)
		assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
		assert.Equal(t, "text", cfg.Format)
	})

	t.Run("file and environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "k1sig.yaml")
		require.NoError(t, os.WriteFile(path, []byte("encoding: base64\nworkers: 4\nlog_level: debug\n"), 0o600))
		t.Setenv("K1SIG_WORKERS", "8")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, k1sig.EncodingBase64, cfg.Encoding)
		assert.Equal(t, 8, cfg.Workers)
		assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	})

	t.Run("invalid encoding", func(t *testing.T) {
		t.Setenv("K1SIG_ENCODING", "ebcdic")

		_, err := LoadConfig("")
		assert.ErrorIs(t, err, k1sig.ErrUnsupportedEncoding)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
