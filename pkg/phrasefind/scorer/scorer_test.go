package scorer

import (
	"math"
	"testing"

	"github.com/cognicore/phrasefind/pkg/phrasefind/miner"
)

func TestScoreRatioFilterS2(t *testing.T) {
	// S2 from spec §8.
	domain := []miner.Candidate{
		{Tokens: []string{"lysis", "buffer"}, Count: 2450},
		{Tokens: []string{"for", "the"}, Count: 8500},
	}
	background := NewMemoryBackground([]miner.Candidate{
		{Tokens: []string{"lysis", "buffer"}, Count: 5},
		{Tokens: []string{"for", "the"}, Count: 125000},
	})

	cfg := Config{Method: MethodRatio, MinSalience: 2.0, MinDomainCount: 10}
	scored, stats, err := Score(domain, background, cfg)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if len(scored) != 1 {
		t.Fatalf("expected 1 surviving phrase, got %d: %+v", len(scored), scored)
	}
	got := scored[0]
	if got.Tokens[0] != "lysis" || got.Tokens[1] != "buffer" {
		t.Fatalf("expected lysis buffer to survive, got %+v", got)
	}
	want := 2450.0 / 6.0
	if math.Abs(float64(got.Salience)-want) > 0.01 {
		t.Errorf("expected salience ~%.2f, got %f", want, got.Salience)
	}
	if stats.AfterDomainFilter != 2 {
		t.Errorf("expected both phrases to pass domain filter, got %d", stats.AfterDomainFilter)
	}
	if stats.AfterSalienceFilter != 1 {
		t.Errorf("expected 1 phrase to pass salience filter, got %d", stats.AfterSalienceFilter)
	}
}

func TestRatioMonotonicity(t *testing.T) {
	s1 := ratioScore(10, 5)
	s2 := ratioScore(20, 5)
	if s2 < s1 {
		t.Errorf("salience should not decrease as domain_count increases: s1=%f s2=%f", s1, s2)
	}
}

func TestPMISmoothingForAbsentBackground(t *testing.T) {
	present := pmiScore(100, 10, true, 10000, 100000)
	absent := pmiScore(100, 0, false, 10000, 100000)
	if math.IsInf(absent, -1) || math.IsNaN(absent) {
		t.Errorf("absent-background PMI should be smoothed, got %f", absent)
	}
	if absent <= present {
		t.Errorf("absent background (half-count smoothing) should score higher than a common background token")
	}
}

func TestIDAssignmentDeterministicOrder(t *testing.T) {
	domain := []miner.Candidate{
		{Tokens: []string{"alpha", "beta"}, Count: 100},
		{Tokens: []string{"gamma", "delta"}, Count: 100},
		{Tokens: []string{"zeta", "eta"}, Count: 50},
	}
	background := NewMemoryBackground(nil)

	cfg := Config{Method: MethodRatio, MinDomainCount: 1, AssignPhraseIDs: true, StartingPhraseID: 1000}
	scored, _, err := Score(domain, background, cfg)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[uint32]bool)
	for _, s := range scored {
		if seen[s.PhraseID] {
			t.Errorf("duplicate phrase_id %d", s.PhraseID)
		}
		seen[s.PhraseID] = true
	}

	// alpha/beta and gamma/delta tie on salience (100/1); alpha beta sorts
	// first lexicographically and must get the lower ID.
	var alphaID, gammaID uint32
	for _, s := range scored {
		switch s.Tokens[0] {
		case "alpha":
			alphaID = s.PhraseID
		case "gamma":
			gammaID = s.PhraseID
		}
	}
	if alphaID >= gammaID {
		t.Errorf("expected alpha-beta (lexicographically first tie) to receive lower id; alpha=%d gamma=%d", alphaID, gammaID)
	}
}

func TestZeroBackgroundIsLegal(t *testing.T) {
	domain := []miner.Candidate{{Tokens: []string{"novel", "phrase"}, Count: 5}}
	background := NewMemoryBackground(nil)

	cfg := Config{Method: MethodRatio, MinDomainCount: 1}
	scored, _, err := Score(domain, background, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(scored) != 1 {
		t.Fatalf("expected 1 scored phrase, got %d", len(scored))
	}
	if scored[0].Salience != 5.0 {
		t.Errorf("expected salience 5.0 (domain_count/1) for empty background, got %f", scored[0].Salience)
	}
}
