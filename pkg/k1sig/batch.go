package k1sig

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	cacheimpl "github.com/Code-Hex/go-generics-cache"
	"github.com/Code-Hex/go-generics-cache/policy/lru"
)

// DefaultKeyCacheSize is the number of resolved public keys a BatchVerifier
// keeps by default.
const DefaultKeyCacheSize = 1024

// BatchResult is the outcome of verifying one Record.
type BatchResult struct {
	Index     int        // Position of the record in the input
	Valid     bool       // Whether the signature verified
	Recovered bool       // Whether PublicKey was recovered rather than supplied
	PublicKey *PublicKey // Supplied or recovered public key, nil on error
	Err       error      // Why the record could not be checked
}

// BatchVerifier verifies many records on a pool of workers.
type BatchVerifier struct {
	codec      *Codec
	numWorkers int
	keys       *cacheimpl.Cache[string, *PublicKey]
}

// NewBatchVerifier creates a verifier using the default codec, one worker
// per CPU and a key cache of DefaultKeyCacheSize entries.
func NewBatchVerifier() *BatchVerifier {
	return &BatchVerifier{
		codec: defaultCodec,
		keys:  newKeyCache(DefaultKeyCacheSize),
	}
}

// WithCodec sets the codec used to parse and verify signatures.
func (b *BatchVerifier) WithCodec(codec *Codec) *BatchVerifier {
	b.codec = codec
	return b
}

// WithWorkers sets the number of parallel workers (0 = auto-detect).
func (b *BatchVerifier) WithWorkers(n int) *BatchVerifier {
	b.numWorkers = n
	return b
}

// WithKeyCacheSize replaces the key cache with one holding size entries.
func (b *BatchVerifier) WithKeyCacheSize(size int) *BatchVerifier {
	if size <= 0 {
		size = DefaultKeyCacheSize
	}
	b.keys = newKeyCache(size)
	return b
}

// Verify checks every record and returns one result per record, in input
// order. If ctx is cancelled the results gathered so far are returned with
// the context error; unchecked records carry that error too.
func (b *BatchVerifier) Verify(ctx context.Context, records []*Record) ([]*BatchResult, error) {
	numWorkers := b.numWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(records) {
		numWorkers = len(records)
	}

	results := make([]*BatchResult, len(records))
	workChan := make(chan int, numWorkers*4)
	var checked int64

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workChan {
				results[i] = b.verifyRecord(i, records[i])
				atomic.AddInt64(&checked, 1)
			}
		}()
	}

	go func() {
		defer close(workChan)
		for i := range records {
			select {
			case <-ctx.Done():
				return
			case workChan <- i:
			}
		}
	}()

	wg.Wait()

	err := ctx.Err()
	for i, res := range results {
		if res == nil {
			results[i] = &BatchResult{Index: i, Err: err}
		}
	}

	b.codec.logger.Debug().
		Int("records", len(records)).
		Int64("checked", atomic.LoadInt64(&checked)).
		Int("workers", numWorkers).
		Msg("batch verification finished")
	return results, err
}

func (b *BatchVerifier) verifyRecord(i int, rec *Record) *BatchResult {
	res := &BatchResult{Index: i}
	if rec == nil {
		res.Err = fmt.Errorf("record %d: %w: nil record", i, ErrMissingField)
		return res
	}

	sig, err := b.codec.ParseString(rec.Signature)
	if err != nil {
		res.Err = fmt.Errorf("record %d: %w", i, err)
		return res
	}

	enc, err := ParseEncoding(string(rec.Encoding))
	if err != nil {
		res.Err = fmt.Errorf("record %d: %w", i, err)
		return res
	}
	digest, err := hashText(rec.Payload, enc)
	if err != nil {
		res.Err = fmt.Errorf("record %d: %w", i, err)
		return res
	}

	pub, err := b.resolveKey(rec.PublicKey)
	if err != nil {
		res.Err = fmt.Errorf("record %d: %w", i, err)
		return res
	}
	if pub == nil {
		pub, err = b.codec.RecoverHash(sig, digest)
		if err != nil {
			res.Err = fmt.Errorf("record %d: %w", i, err)
			return res
		}
		res.Recovered = true
	}
	res.PublicKey = pub

	res.Valid, err = b.codec.VerifyHash(sig, digest, pub)
	if err != nil {
		res.Err = fmt.Errorf("record %d: %w", i, err)
	}
	return res
}

// resolveKey returns nil, nil for an empty key string.
func (b *BatchVerifier) resolveKey(text string) (*PublicKey, error) {
	if text == "" {
		return nil, nil
	}
	if pub, ok := b.keys.Get(text); ok {
		return pub, nil
	}

	pub, err := ParsePublicKey(text)
	if err != nil {
		return nil, err
	}
	b.keys.Set(text, pub)
	return pub, nil
}

func newKeyCache(size int) *cacheimpl.Cache[string, *PublicKey] {
	return cacheimpl.New[string, *PublicKey](cacheimpl.AsLRU[string, *PublicKey](
		lru.WithCapacity(size),
	))
}
