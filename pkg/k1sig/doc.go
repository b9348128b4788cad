// Package k1sig signs, serialises, verifies and recovers secp256k1 ECDSA
// signatures in the SIG_K1_ format.
//
// A signature has three forms:
//
//   - binary: 65 bytes, a header byte in [27, 34] followed by r and s as
//     32-byte big-endian integers;
//   - hex: the lowercase hex of the binary form;
//   - text: "SIG_K1_" followed by the base58 encoding of the binary form and
//     a four-byte RIPEMD-160 checksum keyed by "K1".
//
// # Quick Start
//
//	priv, _ := k1sig.ParsePrivateKey("PVT_K1_...")
//
//	sig, err := k1sig.SignString("hello", k1sig.EncodingUTF8, priv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(sig) // SIG_K1_...
//
//	pub, err := sig.RecoverString("hello", k1sig.EncodingUTF8)
//
// Signing is deterministic (RFC6979) and always yields low-s signatures with
// a header in [31, 34]. Verification accepts high-s signatures as well.
//
// # Custom Collaborators
//
// The curve arithmetic and checksum encoding can be replaced:
//
//	codec := k1sig.NewCodec().
//	    WithEngine(myEngine).
//	    WithLogger(zerolog.New(os.Stderr))
//
//	sig, err := codec.SignHash(digest, priv)
//
// # Batch Verification
//
// BatchVerifier checks records loaded by JSONParser, CSVParser or CBORParser
// in parallel:
//
//	records, _ := (&k1sig.JSONParser{}).ParseRecords("signed.json")
//	results, err := k1sig.NewBatchVerifier().WithWorkers(8).Verify(ctx, records)
package k1sig
