package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// valuePrecision is the fixed decimal precision for record values on the wire
const valuePrecision = 4

// Record is a best objective value, optionally paired with the solution
// blob that achieved it
type Record struct {
	Value    float64
	Solution []byte
}

// HasSolution reports whether the record carries a solution payload
func (r Record) HasSolution() bool {
	return r.Solution != nil
}

// Encode turns a raw solution blob into printable text: zlib compression
// followed by standard base64
func Encode(blob []byte) string {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(blob) // in-memory compression cannot fail
	_ = zw.Close()
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// Decode is the exact inverse of Encode
func Decode(text string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("failed to decode solution payload: %w", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress solution payload: %w", err)
	}
	defer zr.Close()

	blob, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress solution payload: %w", err)
	}
	return blob, nil
}

// FormatRecord serializes a record for the wire: the bare value, or
// <value>:<encoded-payload> when a solution rides along
func FormatRecord(r Record) string {
	value := strconv.FormatFloat(r.Value, 'f', valuePrecision, 64)
	if r.Solution == nil {
		return value
	}
	return value + ":" + Encode(r.Solution)
}

// ParseRecord deserializes a wire record. The unset sentinel NULL is not a
// record and is rejected here; bootstrap replies handle it before parsing.
func ParseRecord(s string) (Record, error) {
	valueText, payload, hasPayload := strings.Cut(s, ":")

	value, err := strconv.ParseFloat(valueText, 64)
	if err != nil {
		return Record{}, fmt.Errorf("malformed record value %q: %w", valueText, err)
	}
	if !hasPayload {
		return Record{Value: value}, nil
	}

	blob, err := Decode(payload)
	if err != nil {
		return Record{}, err
	}
	return Record{Value: value, Solution: blob}, nil
}
