package miner

import (
	"reflect"
	"testing"
)

func TestCounterFrequencyFloor(t *testing.T) {
	// S1 from spec §8.
	docs := [][]string{
		{"rat", "cdk10", "oligo"},
		{"rat", "cdk10", "protein"},
		{"lysis", "buffer"},
		{"rat", "cdk10"},
	}

	c := New(Config{MinN: 2, MaxN: 3, MinCount: 2})
	for _, d := range docs {
		if err := c.AddDocument(d); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
	}

	cands, stats := c.Result()

	var got *Candidate
	for i := range cands {
		if reflect.DeepEqual(cands[i].Tokens, []string{"rat", "cdk10"}) {
			got = &cands[i]
		}
		if reflect.DeepEqual(cands[i].Tokens, []string{"lysis", "buffer"}) {
			t.Fatalf("lysis buffer should have been filtered by min_count, got %+v", cands[i])
		}
	}
	if got == nil {
		t.Fatalf("expected [rat cdk10] in output, got %+v", cands)
	}
	if got.Count != 3 {
		t.Errorf("expected count 3 for [rat cdk10], got %d", got.Count)
	}
	if stats.TotalDocuments != 4 {
		t.Errorf("expected 4 documents, got %d", stats.TotalDocuments)
	}
}

func TestCounterCaseIdempotence(t *testing.T) {
	lower := New(Config{MinN: 2, MaxN: 2, MinCount: 1})
	upper := New(Config{MinN: 2, MaxN: 2, MinCount: 1})

	doc := []string{"rat", "cdk10", "oligo"}
	upperDoc := []string{"RAT", "CDK10", "OLIGO"}

	if err := lower.AddDocument(doc); err != nil {
		t.Fatal(err)
	}
	if err := upper.AddDocument(upperDoc); err != nil {
		t.Fatal(err)
	}

	lowerCands, _ := lower.Result()
	upperCands, _ := upper.Result()

	if !reflect.DeepEqual(lowerCands, upperCands) {
		t.Errorf("case variance produced different counts: %+v vs %+v", lowerCands, upperCands)
	}
}

func TestCounterEmptyDocumentSkipped(t *testing.T) {
	c := New(Config{MinN: 2, MaxN: 3, MinCount: 1})
	if err := c.AddDocument(nil); err != nil {
		t.Fatal(err)
	}
	if err := c.AddDocument([]string{}); err != nil {
		t.Fatal(err)
	}
	_, stats := c.Result()
	if stats.TotalDocuments != 0 {
		t.Errorf("expected 0 documents counted, got %d", stats.TotalDocuments)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{MinN: 2, MaxN: 5, MinCount: 1}, false},
		{"minN too small", Config{MinN: 1, MaxN: 3, MinCount: 1}, true},
		{"maxN too large", Config{MinN: 2, MaxN: 6, MinCount: 1}, true},
		{"minN greater than maxN", Config{MinN: 4, MaxN: 3, MinCount: 1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestMaxNClampedToRemainingTokens(t *testing.T) {
	c := New(Config{MinN: 2, MaxN: 5, MinCount: 1})
	if err := c.AddDocument([]string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	cands, _ := c.Result()
	for _, cand := range cands {
		if len(cand.Tokens) > 3 {
			t.Errorf("n-gram longer than document: %+v", cand)
		}
	}
}
