// Package vocab builds and serializes the token vocabulary shared by the
// builder and the matcher (spec §3 "Vocabulary", §4.3 step 1, §6 "vocab.json").
package vocab

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cognicore/phrasefind/pkg/phrasefind/internalerr"
)

// UnknownID is the reserved sentinel token ID for out-of-vocabulary tokens.
const UnknownID uint32 = 0

// UnknownToken is the special-token name for UnknownID in vocab.json.
const UnknownToken = "<UNK>"

// DefaultSeparatorID is the reserved inter-phrase separator used internally
// by the automaton (spec §3).
const DefaultSeparatorID uint32 = 4294967294

// Vocab is a deterministic token<->ID mapping built once per build, plus the
// reserved separator ID.
type Vocab struct {
	tokenToID   map[string]uint32
	idToToken   []string // index 0 is unused ("<UNK>" has no string form to echo back)
	separatorID uint32
}

// Build collects the distinct tokens across every phrase's token sequence,
// sorts them alphabetically, and assigns IDs 1..N (spec §4.3 step 1).
// separatorID is the reserved automaton separator; if a real token would
// collide with it the build fails (spec §4.3, §7).
func Build(phraseTokenSeqs [][]string, separatorID uint32) (*Vocab, error) {
	set := make(map[string]struct{})
	for _, seq := range phraseTokenSeqs {
		for _, tok := range seq {
			set[strings.ToLower(tok)] = struct{}{}
		}
	}

	tokens := make([]string, 0, len(set))
	for tok := range set {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	v := &Vocab{
		tokenToID:   make(map[string]uint32, len(tokens)),
		idToToken:   make([]string, len(tokens)+1),
		separatorID: separatorID,
	}
	for i, tok := range tokens {
		id := uint32(i + 1)
		if id == separatorID {
			return nil, fmt.Errorf("token %q: %w", tok, internalerr.ErrSeparatorCollision)
		}
		v.tokenToID[tok] = id
		v.idToToken[id] = tok
	}
	return v, nil
}

// ID returns the token's assigned ID and whether it is known.
func (v *Vocab) ID(token string) (uint32, bool) {
	id, ok := v.tokenToID[strings.ToLower(token)]
	return id, ok
}

// Token returns the string for a known, non-reserved ID.
func (v *Vocab) Token(id uint32) (string, bool) {
	if id == 0 || int(id) >= len(v.idToToken) {
		return "", false
	}
	return v.idToToken[id], true
}

// EncodeTokens maps each input string to its vocabulary ID, lowercasing for
// lookup; misses map to UnknownID (spec §4.4, encode_tokens).
func (v *Vocab) EncodeTokens(tokens []string) []uint32 {
	ids := make([]uint32, len(tokens))
	for i, t := range tokens {
		if id, ok := v.ID(t); ok {
			ids[i] = id
		} else {
			ids[i] = UnknownID
		}
	}
	return ids
}

// Size returns the number of real (non-reserved) tokens.
func (v *Vocab) Size() int { return len(v.tokenToID) }

// SeparatorID returns the reserved separator ID this vocabulary was built
// with.
func (v *Vocab) SeparatorID() uint32 { return v.separatorID }

// file is the JSON shape persisted as vocab.json (spec §4.3 step 6).
type file struct {
	Tokens        map[string]uint32 `json:"tokens"`
	SpecialTokens map[string]uint32 `json:"special_tokens"`
	VocabSize     int               `json:"vocab_size"`
	SeparatorID   uint32            `json:"separator_id"`
}

// WriteFile serializes the vocabulary to the vocab.json format.
func (v *Vocab) WriteFile(path string) error {
	f := file{
		Tokens:        v.tokenToID,
		SpecialTokens: map[string]uint32{UnknownToken: UnknownID},
		VocabSize:     v.Size(),
		SeparatorID:   v.separatorID,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal vocab: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write vocab %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a vocab.json file produced by WriteFile (or the Builder).
func LoadFile(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocab %s: %w", path, err)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse vocab %s: %w", path, err)
	}

	v := &Vocab{
		tokenToID:   f.Tokens,
		separatorID: f.SeparatorID,
	}
	maxID := uint32(0)
	for _, id := range f.Tokens {
		if id > maxID {
			maxID = id
		}
	}
	v.idToToken = make([]string, maxID+1)
	for tok, id := range f.Tokens {
		v.idToToken[id] = tok
	}
	return v, nil
}
