package k1sig

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Record is one payload to verify. Signature and PublicKey are kept as text
// so a malformed entry fails on its own instead of failing the whole file.
// PublicKey may be empty, in which case the key is recovered.
type Record struct {
	Payload   string
	Encoding  Encoding
	Signature string
	PublicKey string
}

// RecordParser defines the interface for parsing records from various sources.
type RecordParser interface {
	// ParseRecords parses records from a source and returns them.
	ParseRecords(source string) ([]*Record, error)
}

// JSONParser parses records from JSON files.
type JSONParser struct {
	PayloadField   string // Field name for the payload (default: "payload")
	EncodingField  string // Field name for the payload encoding (default: "encoding")
	SignatureField string // Field name for the signature (default: "signature")
	PublicKeyField string // Field name for the public key (default: "public_key")
}

// ParseRecords parses records from a JSON file.
//
// Expected format:
// [
//
//	{"payload": "hello", "signature": "SIG_K1_...", "public_key": "PUB_K1_..."},
//	{"payload": "68656c6c6f", "encoding": "hex", "signature": "SIG_K1_..."}
//
// ]
func (p *JSONParser) ParseRecords(jsonFile string) ([]*Record, error) {
	file, err := os.Open(jsonFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()

	var items []map[string]any
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	payloadField := orDefault(p.PayloadField, "payload")
	encodingField := orDefault(p.EncodingField, "encoding")
	signatureField := orDefault(p.SignatureField, "signature")
	publicKeyField := orDefault(p.PublicKeyField, "public_key")

	records := make([]*Record, 0, len(items))
	for i, item := range items {
		rec := &Record{}

		payload, ok := item[payloadField].(string)
		if !ok {
			return nil, fmt.Errorf("record %d: missing or non-string %s field", i, payloadField)
		}
		rec.Payload = payload

		signature, ok := item[signatureField].(string)
		if !ok {
			return nil, fmt.Errorf("record %d: missing or non-string %s field", i, signatureField)
		}
		rec.Signature = signature

		if v, ok := item[encodingField].(string); ok {
			rec.Encoding = Encoding(v)
		}
		if v, ok := item[publicKeyField].(string); ok {
			rec.PublicKey = v
		}

		records = append(records, rec)
	}

	return records, nil
}

// CSVParser parses records from CSV files with a header row.
type CSVParser struct {
	PayloadCol   string // Column name for the payload (default: "payload")
	EncodingCol  string // Column name for the encoding (default: "encoding", optional)
	SignatureCol string // Column name for the signature (default: "signature")
	PublicKeyCol string // Column name for the public key (default: "public_key", optional)
}

// ParseRecords parses records from a CSV file.
func (p *CSVParser) ParseRecords(csvFile string) ([]*Record, error) {
	file, err := os.Open(csvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	payloadCol := orDefault(p.PayloadCol, "payload")
	encodingCol := orDefault(p.EncodingCol, "encoding")
	signatureCol := orDefault(p.SignatureCol, "signature")
	publicKeyCol := orDefault(p.PublicKeyCol, "public_key")

	payloadIdx, encodingIdx, signatureIdx, publicKeyIdx := -1, -1, -1, -1
	for i, col := range header {
		switch col {
		case payloadCol:
			payloadIdx = i
		case encodingCol:
			encodingIdx = i
		case signatureCol:
			signatureIdx = i
		case publicKeyCol:
			publicKeyIdx = i
		}
	}

	if payloadIdx == -1 || signatureIdx == -1 {
		return nil, fmt.Errorf("missing required columns: %s or %s", payloadCol, signatureCol)
	}

	records := make([]*Record, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		if payloadIdx >= len(row) || signatureIdx >= len(row) {
			return nil, fmt.Errorf("line %d: too few columns", line)
		}

		rec := &Record{
			Payload:   row[payloadIdx],
			Signature: row[signatureIdx],
		}
		if encodingIdx >= 0 && encodingIdx < len(row) {
			rec.Encoding = Encoding(row[encodingIdx])
		}
		if publicKeyIdx >= 0 && publicKeyIdx < len(row) {
			rec.PublicKey = row[publicKeyIdx]
		}
		records = append(records, rec)
	}

	return records, nil
}

// cborRecord is the binary record layout: raw payload bytes, the signature
// as its 65-byte form and an optional 33-byte compressed public key.
type cborRecord struct {
	Payload   []byte     `cbor:"1,keyasint"`
	Signature *Signature `cbor:"2,keyasint"`
	PublicKey []byte     `cbor:"3,keyasint,omitempty"`
}

// CBORParser parses records from a CBOR array of binary records.
type CBORParser struct{}

// ParseRecords parses records from a CBOR file.
func (p *CBORParser) ParseRecords(cborFile string) ([]*Record, error) {
	data, err := os.ReadFile(cborFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var items []cborRecord
	if err := cbor.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse CBOR: %w", err)
	}

	records := make([]*Record, 0, len(items))
	for i, item := range items {
		if item.Signature == nil || item.Signature.r == nil {
			return nil, fmt.Errorf("record %d: missing signature", i)
		}
		rec := &Record{
			Payload:   hex.EncodeToString(item.Payload),
			Encoding:  EncodingHex,
			Signature: item.Signature.String(),
		}
		if len(item.PublicKey) > 0 {
			rec.PublicKey = hex.EncodeToString(item.PublicKey)
		}
		records = append(records, rec)
	}
	return records, nil
}

// MarshalCBORRecords encodes payloads, signatures and optional public keys
// in the layout CBORParser reads. pubs may be shorter than sigs.
func MarshalCBORRecords(payloads [][]byte, sigs []*Signature, pubs []*PublicKey) ([]byte, error) {
	if len(payloads) != len(sigs) {
		return nil, fmt.Errorf("got %d payloads for %d signatures", len(payloads), len(sigs))
	}

	items := make([]cborRecord, len(sigs))
	for i := range sigs {
		items[i] = cborRecord{Payload: payloads[i], Signature: sigs[i]}
		if i < len(pubs) && pubs[i] != nil {
			items[i].PublicKey = pubs[i].Bytes()
		}
	}
	return cbor.Marshal(items)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
