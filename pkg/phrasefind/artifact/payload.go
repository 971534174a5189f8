// Package artifact defines the payload table and manifest formats that, with
// automaton.daac and vocab.json, make up the builder's artifact set
// (spec §3 "Artifact set", §4.3, §6).
package artifact

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// PayloadRecordSize is the fixed per-phrase record size in bytes (spec §3,
// §9 "Binary payload layout"): phrase_id(4) + salience(4) + count(4) +
// reserved(4) + n(1).
const PayloadRecordSize = 17

// Payload is one decoded 17-byte payload record, indexed by pattern
// insertion order (spec §3: "indexed by the automaton's pattern index").
type Payload struct {
	PhraseID uint32
	Salience float32
	Count    uint32
	N        uint8 // phrase length in tokens
}

// EncodeRecord writes p's fixed 17-byte little-endian encoding into buf,
// which must be at least PayloadRecordSize long. The 4 reserved padding
// bytes between Count and N are zeroed and preserved verbatim for on-disk
// compatibility (spec §9).
func EncodeRecord(buf []byte, p Payload) {
	binary.LittleEndian.PutUint32(buf[0:4], p.PhraseID)
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.Salience))
	binary.LittleEndian.PutUint32(buf[8:12], p.Count)
	buf[12], buf[13], buf[14], buf[15] = 0, 0, 0, 0
	buf[16] = p.N
}

// DecodeRecord reads a single 17-byte record from buf.
func DecodeRecord(buf []byte) Payload {
	return Payload{
		PhraseID: binary.LittleEndian.Uint32(buf[0:4]),
		Salience: math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])),
		Count:    binary.LittleEndian.Uint32(buf[8:12]),
		N:        buf[16],
	}
}

// WritePayloads writes one 17-byte record per entry, in slice order (which
// must be pattern insertion order), to path (spec §4.3 step 4).
func WritePayloads(path string, payloads []Payload) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create payloads file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, PayloadRecordSize)
	for _, p := range payloads {
		EncodeRecord(buf, p)
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("write payload record: %w", err)
		}
	}
	return nil
}

// ReadPayloads loads the entire payload table into memory, indexed by
// pattern index. It fails if the file size is not a multiple of
// PayloadRecordSize (spec §8 property 5).
func ReadPayloads(path string) ([]Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payloads file: %w", err)
	}
	if len(data)%PayloadRecordSize != 0 {
		return nil, fmt.Errorf("payloads file size %d not a multiple of %d bytes", len(data), PayloadRecordSize)
	}
	n := len(data) / PayloadRecordSize
	out := make([]Payload, n)
	for i := 0; i < n; i++ {
		out[i] = DecodeRecord(data[i*PayloadRecordSize : (i+1)*PayloadRecordSize])
	}
	return out, nil
}
