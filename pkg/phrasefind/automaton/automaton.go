// Package automaton implements the double-array Aho-Corasick multi-pattern
// automaton that backs the compiled phrase matcher (spec §4.3 step 3, §4.4).
//
// Patterns are sequences of vocabulary token IDs, which the builder already
// assigns densely from 1..N (spec §3) — so unlike a byte-oriented
// Aho-Corasick, this automaton's base/check arrays are addressed directly by
// token ID rather than by a remapped byte alphabet. The double-array layout
// (Aoe-style: transition(s, c) = p where p = base[s]+c and check[p] == s) is
// the same shape the spec's "double-array Aho-Corasick" calls for; this
// implementation is hand-built rather than delegated to a library because the
// spec names the automaton itself as the hard engineering this system
// exists to do (spec §1, "The core").
package automaton

import (
	"fmt"
	"sort"
)

// Hit is a raw overlapping match: pattern pidx ends at token-stream position
// end (exclusive), i.e. the token at index end-1 was the last token consumed.
type Hit struct {
	PatternIndex uint32
	End          int
}

const rootTrieNode = 0

type trieNode struct {
	children map[uint32]int
	output   []uint32 // pattern indices terminating exactly at this node
	depth    int
}

// Builder accumulates patterns into a trie, to be compiled into a double
// array via Build. Patterns must be added in insertion order — that order
// becomes the pattern index used throughout the artifact set (spec §4.3).
type Builder struct {
	trie    []trieNode
	nPatts  int
	built   bool
}

// NewBuilder creates an empty pattern trie rooted at index 0.
func NewBuilder() *Builder {
	return &Builder{trie: []trieNode{{children: map[uint32]int{}}}}
}

// ErrDuplicatePattern is returned by AddPattern when the exact same token-ID
// sequence was already inserted (spec §4.3 step 3, "Duplicate patterns are a
// fatal error").
var ErrDuplicatePattern = fmt.Errorf("automaton: duplicate pattern")

// ErrEmptyPatternSet is returned by Build when no patterns were added
// (spec §4.3, "empty phrase list (fatal)").
var ErrEmptyPatternSet = fmt.Errorf("automaton: empty pattern set")

// AddPattern inserts ids as the next pattern and returns its assigned
// pattern index (always len(already-added) at call time, i.e. insertion
// order).
func (b *Builder) AddPattern(ids []uint32) (int, error) {
	if b.built {
		return 0, fmt.Errorf("automaton: AddPattern after Build")
	}
	node := rootTrieNode
	for _, id := range ids {
		child, ok := b.trie[node].children[id]
		if !ok {
			b.trie = append(b.trie, trieNode{
				children: map[uint32]int{},
				depth:    b.trie[node].depth + 1,
			})
			child = len(b.trie) - 1
			b.trie[node].children[id] = child
		}
		node = child
	}
	if len(b.trie[node].output) > 0 {
		return 0, ErrDuplicatePattern
	}
	idx := b.nPatts
	b.trie[node].output = append(b.trie[node].output, uint32(idx))
	b.nPatts++
	return idx, nil
}

// Build compiles the trie into fail links, merged (overlapping) outputs, and
// a double-array transition table.
func (b *Builder) Build() (*Automaton, error) {
	if b.nPatts == 0 {
		return nil, ErrEmptyPatternSet
	}
	b.built = true

	bfsOrder, failByTrie := computeFailLinks(b.trie)
	outputByTrie := mergeOutputs(b.trie, bfsOrder, failByTrie)

	base, check, pos := buildDoubleArray(b.trie, bfsOrder)

	n := len(base)
	fail := make([]int32, n)
	output := make([][]uint32, n)
	for node := range b.trie {
		p := pos[node]
		fail[p] = int32(pos[failByTrie[node]])
		if len(outputByTrie[node]) > 0 {
			output[p] = outputByTrie[node]
		}
	}

	return &Automaton{
		base:        base,
		check:       check,
		fail:        fail,
		output:      output,
		numPatterns: b.nPatts,
		rootPos:     int32(pos[rootTrieNode]),
	}, nil
}

// computeFailLinks runs the standard Aho-Corasick BFS, returning the visit
// order (rooted at, but excluding, the trie root) and each node's fail link.
func computeFailLinks(trie []trieNode) (bfsOrder []int, fail []int) {
	fail = make([]int, len(trie))
	queue := make([]int, 0, len(trie))

	// Depth-1 nodes fail to the root.
	for _, c := range sortedCodes(trie[rootTrieNode].children) {
		child := trie[rootTrieNode].children[c]
		fail[child] = rootTrieNode
		queue = append(queue, child)
	}

	for qi := 0; qi < len(queue); qi++ {
		u := queue[qi]
		// Deterministic child order keeps Build's output reproducible.
		codes := sortedCodes(trie[u].children)
		for _, c := range codes {
			v := trie[u].children[c]
			queue = append(queue, v)

			f := fail[u]
			found := false
			for f != rootTrieNode {
				if nxt, ok := trie[f].children[c]; ok {
					f = nxt
					found = true
					break
				}
				f = fail[f]
			}
			if !found {
				if nxt, ok := trie[rootTrieNode].children[c]; ok && nxt != v {
					f = nxt
				} else {
					f = rootTrieNode
				}
			}
			fail[v] = f
		}
	}
	return queue, fail
}

// mergeOutputs computes, for every trie node, the union of its direct
// pattern terminations and everything reachable via its fail-link chain —
// the set reported when the automaton's cursor reaches that node (spec
// §4.3/§4.4, overlapping-match reporting).
func mergeOutputs(trie []trieNode, bfsOrder []int, fail []int) [][]uint32 {
	out := make([][]uint32, len(trie))
	out[rootTrieNode] = append([]uint32{}, trie[rootTrieNode].output...)
	for _, v := range bfsOrder {
		merged := append([]uint32{}, trie[v].output...)
		merged = append(merged, out[fail[v]]...)
		out[v] = merged
	}
	return out
}

func sortedCodes(children map[uint32]int) []uint32 {
	codes := make([]uint32, 0, len(children))
	for c := range children {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// buildDoubleArray assigns every trie node a position in a shared base/check
// array pair such that transition(s, c) = base[s]+c, validated by
// check[base[s]+c] == s (Aoe-style double array).
func buildDoubleArray(trie []trieNode, bfsOrder []int) (base, check []int32, pos []int) {
	pos = make([]int, len(trie))
	base = make([]int32, 2)
	check = make([]int32, 2)

	ensure := func(idx int32) {
		for int(idx) >= len(base) {
			base = append(base, 0)
			check = append(check, 0)
		}
	}

	const rootPos = 1
	pos[rootTrieNode] = rootPos
	ensure(rootPos)
	check[rootPos] = -1 // occupied, no parent

	cursor := int32(1) // heuristic starting point for the next free-base search

	order := append([]int{rootTrieNode}, bfsOrder...)
	for _, u := range order {
		codes := sortedCodes(trie[u].children)
		if len(codes) == 0 {
			continue
		}
		minCode, maxCode := int32(codes[0]), int32(codes[len(codes)-1])

		b := cursor - minCode
		if b < 1 {
			b = 1
		}
	search:
		for {
			ensure(b + maxCode)
			for _, c := range codes {
				if check[b+int32(c)] != 0 {
					b++
					continue search
				}
			}
			break
		}

		base[pos[u]] = b
		for _, c := range codes {
			p := b + int32(c)
			check[p] = int32(pos[u])
			child := trie[u].children[c]
			pos[child] = int(p)
		}
		if last := b + maxCode; last+1 > cursor {
			cursor = last + 1
		}
	}
	return base, check, pos
}

// Automaton is a compiled, read-only double-array Aho-Corasick machine.
type Automaton struct {
	base        []int32
	check       []int32
	fail        []int32
	output      [][]uint32
	numPatterns int
	rootPos     int32
}

// NumPatterns returns the number of patterns compiled into the automaton,
// used by the Matcher to cross-check against the manifest (spec §4.4,
// "manifest-automaton mismatch").
func (a *Automaton) NumPatterns() int { return a.numPatterns }

// Match streams ids through the automaton and returns every overlapping hit
// in ascending end-position order (spec §4.4, "Core match loop").
func (a *Automaton) Match(ids []uint32) []Hit {
	var hits []Hit
	s := a.rootPos
	for i, id := range ids {
		s = a.step(s, id)
		for _, pidx := range a.output[s] {
			hits = append(hits, Hit{PatternIndex: pidx, End: i + 1})
		}
	}
	return hits
}

// step advances the automaton from state s on symbol id, following fail
// links until a valid transition is found (or the root is reached, which
// always "succeeds" by staying put when no transition exists).
func (a *Automaton) step(s int32, id uint32) int32 {
	for {
		target := a.base[s] + int32(id)
		if target >= 0 && int(target) < len(a.check) && a.check[target] == s {
			return target
		}
		if s == a.rootPos {
			return a.rootPos
		}
		s = a.fail[s]
	}
}
