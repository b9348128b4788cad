package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/mahdiidarabi/k1sig/pkg/k1sig"
)

const Version = "0.1.0"

var (
	errInvalidSignature = errors.New("signature is not valid")
	errBatchFailed      = errors.New("batch verification failed")
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    *Config
	logger zerolog.Logger
	codec  *k1sig.Codec
}

func newApp() *cli.Command {
	a := &app{}

	encodingFlag := &cli.StringFlag{
		Name:    "encoding",
		Aliases: []string{"e"},
		Usage:   "Payload encoding (utf8, hex, base64, latin1, utf16le)",
	}
	digestFlag := &cli.BoolFlag{
		Name:  "digest",
		Usage: "Treat the payload as the hex of a 32-byte SHA-256 digest",
	}
	signatureFlag := &cli.StringFlag{
		Name:     "signature",
		Aliases:  []string{"s"},
		Usage:    "Signature in SIG_K1_ form",
		Required: true,
	}
	keyFlag := &cli.StringFlag{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "Private key (PVT_K1_, WIF or hex); prompted for when omitted",
	}

	return &cli.Command{
		Name:    "k1sig",
		Usage:   "Sign, verify and recover SIG_K1_ signatures",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (yaml, toml or json)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			{
				Name:      "sign",
				Usage:     "Sign a payload",
				ArgsUsage: "<payload>",
				Flags: []cli.Flag{
					keyFlag,
					encodingFlag,
					digestFlag,
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format (text or hex)"},
				},
				Action: a.sign,
			},
			{
				Name:      "verify",
				Usage:     "Verify a signature against a public key",
				ArgsUsage: "<payload>",
				Flags: []cli.Flag{
					signatureFlag,
					&cli.StringFlag{
						Name:     "public-key",
						Aliases:  []string{"p"},
						Usage:    "Public key (PUB_K1_, legacy or hex)",
						Required: true,
					},
					encodingFlag,
					digestFlag,
				},
				Action: a.verify,
			},
			{
				Name:      "recover",
				Usage:     "Recover the public key that produced a signature",
				ArgsUsage: "<payload>",
				Flags: []cli.Flag{
					signatureFlag,
					encodingFlag,
					digestFlag,
					&cli.BoolFlag{Name: "legacy", Usage: "Also print the legacy EOS-prefixed form"},
				},
				Action: a.recover,
			},
			{
				Name:      "convert",
				Usage:     "Convert a signature between its text, hex and raw JSON forms",
				ArgsUsage: "<signature>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Input form (text, hex or json)", Value: "text"},
					&cli.StringFlag{Name: "to", Usage: "Output form (text, hex or json)", Value: "hex"},
				},
				Action: a.convert,
			},
			{
				Name:  "batch",
				Usage: "Verify a file of signed records in parallel",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to the records file",
						Required: true,
					},
					&cli.StringFlag{Name: "input-format", Usage: "Records format (json, csv or cbor); defaults to the file extension"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Number of parallel workers (0 = auto-detect)"},
					&cli.IntFlag{Name: "key-cache-size", Usage: "Number of resolved public keys to cache"},
				},
				Action: a.batch,
			},
			{
				Name:  "keys",
				Usage: "Key utilities",
				Commands: []*cli.Command{
					{
						Name:   "generate",
						Usage:  "Generate a new key pair",
						Action: a.generateKey,
					},
					{
						Name:   "show",
						Usage:  "Print the public key and alternate forms of a private key",
						Flags:  []cli.Flag{keyFlag},
						Action: a.showKey,
					},
				},
			},
		},
	}
}

func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if err := cfg.applyFlags(cmd); err != nil {
		return ctx, err
	}

	a.cfg = cfg
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(cfg.LogLevel).
		With().Timestamp().Logger()
	a.codec = k1sig.NewCodec().WithLogger(a.logger)
	return ctx, nil
}

func (a *app) out(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// payloadDigest hashes the first argument under the selected encoding, or
// decodes it directly with --digest.
func (a *app) payloadDigest(cmd *cli.Command) ([]byte, error) {
	if cmd.Args().Len() != 1 {
		return nil, fmt.Errorf("expected exactly one payload argument, got %d", cmd.Args().Len())
	}
	payload := cmd.Args().First()

	if cmd.Bool("digest") {
		digest, err := hex.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode digest: %w", err)
		}
		return digest, nil
	}

	enc, err := a.cfg.encoding(cmd)
	if err != nil {
		return nil, err
	}
	data, err := enc.Bytes(payload)
	if err != nil {
		return nil, err
	}
	return k1sig.HashPayload(data), nil
}

func (a *app) sign(ctx context.Context, cmd *cli.Command) error {
	digest, err := a.payloadDigest(cmd)
	if err != nil {
		return err
	}
	priv, err := a.cfg.privateKey(cmd)
	if err != nil {
		return err
	}

	sig, err := a.codec.SignHash(digest, priv)
	if err != nil {
		return err
	}
	a.logger.Info().Str("public_key", priv.PublicKey().String()).Msg("payload signed")

	switch format := a.cfg.format(cmd); format {
	case "text":
		fmt.Fprintln(a.out(cmd), sig.String())
	case "hex":
		fmt.Fprintln(a.out(cmd), sig.ToHex())
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}

func (a *app) verify(ctx context.Context, cmd *cli.Command) error {
	digest, err := a.payloadDigest(cmd)
	if err != nil {
		return err
	}
	sig, err := a.codec.ParseString(cmd.String("signature"))
	if err != nil {
		return err
	}
	pub, err := k1sig.ParsePublicKey(cmd.String("public-key"))
	if err != nil {
		return err
	}

	ok, err := a.codec.VerifyHash(sig, digest, pub)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out(cmd), "invalid")
		return errInvalidSignature
	}
	fmt.Fprintln(a.out(cmd), "valid")
	return nil
}

func (a *app) recover(ctx context.Context, cmd *cli.Command) error {
	digest, err := a.payloadDigest(cmd)
	if err != nil {
		return err
	}
	sig, err := a.codec.ParseString(cmd.String("signature"))
	if err != nil {
		return err
	}

	pub, err := a.codec.RecoverHash(sig, digest)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out(cmd), pub.String())
	if cmd.Bool("legacy") {
		fmt.Fprintln(a.out(cmd), pub.LegacyString(k1sig.LegacyPublicKeyPrefix))
	}
	return nil
}

func (a *app) convert(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one signature argument, got %d", cmd.Args().Len())
	}
	input := cmd.Args().First()

	var src k1sig.Source
	switch from := cmd.String("from"); from {
	case "text":
		src = k1sig.TextSource(input)
	case "hex":
		src = k1sig.HexSource(input)
	case "json":
		var raw k1sig.RawSource
		if err := json.Unmarshal([]byte(input), &raw); err != nil {
			return fmt.Errorf("failed to parse raw signature: %w", err)
		}
		src = raw
	default:
		return fmt.Errorf("unknown input form %q", from)
	}

	sig, err := a.codec.From(src)
	if err != nil {
		return err
	}

	switch to := cmd.String("to"); to {
	case "text":
		fmt.Fprintln(a.out(cmd), sig.String())
	case "hex":
		fmt.Fprintln(a.out(cmd), sig.ToHex())
	case "json":
		id := sig.RecoveryID()
		data, err := json.Marshal(k1sig.RawSource{R: sig.R(), S: sig.S(), RecoveryID: &id})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out(cmd), string(data))
	default:
		return fmt.Errorf("unknown output form %q", to)
	}
	return nil
}

func (a *app) batch(ctx context.Context, cmd *cli.Command) error {
	input := cmd.String("input")

	format := cmd.String("input-format")
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(input)), ".")
	}

	var parser k1sig.RecordParser
	switch format {
	case "json":
		parser = &k1sig.JSONParser{}
	case "csv":
		parser = &k1sig.CSVParser{}
	case "cbor":
		parser = &k1sig.CBORParser{}
	default:
		return fmt.Errorf("unknown records format %q", format)
	}

	records, err := parser.ParseRecords(input)
	if err != nil {
		return err
	}

	workers := a.cfg.Workers
	if cmd.IsSet("workers") {
		workers = int(cmd.Int("workers"))
	}
	cacheSize := a.cfg.KeyCacheSize
	if cmd.IsSet("key-cache-size") {
		cacheSize = int(cmd.Int("key-cache-size"))
	}

	verifier := k1sig.NewBatchVerifier().
		WithCodec(a.codec).
		WithWorkers(workers).
		WithKeyCacheSize(cacheSize)

	a.logger.Info().Str("input", input).Int("records", len(records)).Msg("verifying records")
	results, err := verifier.Verify(ctx, records)
	if err != nil {
		return err
	}

	w := a.out(cmd)
	for _, res := range results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "%d\terror\t%v\n", res.Index, res.Err)
		case res.Valid && res.Recovered:
			fmt.Fprintf(w, "%d\tvalid\t%s (recovered)\n", res.Index, res.PublicKey)
		case res.Valid:
			fmt.Fprintf(w, "%d\tvalid\t%s\n", res.Index, res.PublicKey)
		default:
			fmt.Fprintf(w, "%d\tinvalid\t%s\n", res.Index, res.PublicKey)
		}
	}

	valid := lo.CountBy(results, func(res *k1sig.BatchResult) bool { return res.Valid })
	failed := lo.CountBy(results, func(res *k1sig.BatchResult) bool { return res.Err != nil })
	a.logger.Info().Int("valid", valid).Int("errors", failed).Int("total", len(results)).Msg("batch finished")

	if valid != len(results) {
		return fmt.Errorf("%w: %d of %d records did not verify", errBatchFailed, len(results)-valid, len(results))
	}
	return nil
}

func (a *app) generateKey(ctx context.Context, cmd *cli.Command) error {
	priv, err := k1sig.GeneratePrivateKey()
	if err != nil {
		return err
	}
	return a.printKey(cmd, priv)
}

func (a *app) showKey(ctx context.Context, cmd *cli.Command) error {
	priv, err := a.cfg.privateKey(cmd)
	if err != nil {
		return err
	}
	return a.printKey(cmd, priv)
}

func (a *app) printKey(cmd *cli.Command, priv *k1sig.PrivateKey) error {
	wif, err := priv.WIF()
	if err != nil {
		return err
	}
	pub := priv.PublicKey()

	w := a.out(cmd)
	fmt.Fprintf(w, "Private key: %s\n", priv)
	fmt.Fprintf(w, "WIF:         %s\n", wif)
	fmt.Fprintf(w, "Public key:  %s\n", pub)
	fmt.Fprintf(w, "Legacy:      %s\n", pub.LegacyString(k1sig.LegacyPublicKeyPrefix))
	return nil
}
