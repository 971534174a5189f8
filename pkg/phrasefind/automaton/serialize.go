package automaton

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// magic identifies the on-disk automaton.daac format; version allows the
// loader to reject artifacts from an incompatible future encoder (spec §6,
// "Treat as opaque but versioned").
var magic = [4]byte{'D', 'A', 'A', 'C'}

const formatVersion uint32 = 1

// WriteTo serializes the compiled automaton to w in the automaton.daac
// binary layout: a small header followed by the base, check, and fail
// arrays (int32 LE, one entry per double-array position) and a per-position
// output table (spec §4.3 step 3, §6).
func (a *Automaton) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64

	write := func(v any) error {
		return binary.Write(bw, binary.LittleEndian, v)
	}

	if _, err := bw.Write(magic[:]); err != nil {
		return written, err
	}
	written += int64(len(magic))

	header := []uint32{formatVersion, uint32(a.numPatterns), uint32(len(a.base))}
	for _, h := range header {
		if err := write(h); err != nil {
			return written, err
		}
		written += 4
	}
	if err := write(a.rootPos); err != nil {
		return written, err
	}
	written += 4

	for _, arr := range [][]int32{a.base, a.check, a.fail} {
		for _, v := range arr {
			if err := write(v); err != nil {
				return written, err
			}
			written += 4
		}
	}

	for _, entries := range a.output {
		if err := write(uint32(len(entries))); err != nil {
			return written, err
		}
		written += 4
		for _, pidx := range entries {
			if err := write(pidx); err != nil {
				return written, err
			}
			written += 4
		}
	}

	if err := bw.Flush(); err != nil {
		return written, err
	}
	return written, nil
}

// ReadFrom deserializes an automaton previously written by WriteTo. It
// validates the magic and version header and fails closed on any structural
// inconsistency (spec §4.4, "corrupt automaton file → load-time fail").
func ReadFrom(r io.Reader) (*Automaton, error) {
	br := bufio.NewReader(r)

	var gotMagic [4]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("automaton: read magic: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("automaton: bad magic %q, corrupt file", gotMagic)
	}

	read32 := func() (uint32, error) {
		var v uint32
		err := binary.Read(br, binary.LittleEndian, &v)
		return v, err
	}
	readI32 := func() (int32, error) {
		var v int32
		err := binary.Read(br, binary.LittleEndian, &v)
		return v, err
	}

	version, err := read32()
	if err != nil {
		return nil, fmt.Errorf("automaton: read version: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("automaton: unsupported format version %d", version)
	}

	numPatterns, err := read32()
	if err != nil {
		return nil, fmt.Errorf("automaton: read num_patterns: %w", err)
	}
	numStates, err := read32()
	if err != nil {
		return nil, fmt.Errorf("automaton: read num_states: %w", err)
	}
	rootPos, err := readI32()
	if err != nil {
		return nil, fmt.Errorf("automaton: read root: %w", err)
	}

	a := &Automaton{
		numPatterns: int(numPatterns),
		rootPos:     rootPos,
		base:        make([]int32, numStates),
		check:       make([]int32, numStates),
		fail:        make([]int32, numStates),
		output:      make([][]uint32, numStates),
	}

	for _, arr := range [][]int32{a.base, a.check, a.fail} {
		for i := range arr {
			v, err := readI32()
			if err != nil {
				return nil, fmt.Errorf("automaton: read transition table: %w", err)
			}
			arr[i] = v
		}
	}

	for i := range a.output {
		count, err := read32()
		if err != nil {
			return nil, fmt.Errorf("automaton: read output table: %w", err)
		}
		if count == 0 {
			continue
		}
		entries := make([]uint32, count)
		for j := range entries {
			v, err := read32()
			if err != nil {
				return nil, fmt.Errorf("automaton: read output entries: %w", err)
			}
			entries[j] = v
		}
		a.output[i] = entries
	}

	if int(rootPos) < 0 || int(rootPos) >= len(a.base) {
		return nil, fmt.Errorf("automaton: root position out of range, corrupt file")
	}

	return a, nil
}
