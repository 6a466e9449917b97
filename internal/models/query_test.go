package models

import (
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *SearchQuery
		wantErr bool
	}{
		{"empty query", &SearchQuery{Query: ""}, true},
		{"valid query", &SearchQuery{Query: "hello"}, false},
		{"sets default top_k", &SearchQuery{Query: "x", TopK: 0}, false},
		{"caps top_k at 100", &SearchQuery{Query: "x", TopK: 200}, false},
		{"bias below range", &SearchQuery{Query: "x", Bias: -0.1}, true},
		{"bias above range", &SearchQuery{Query: "x", Bias: 1.1}, true},
		{"unknown fusion policy", &SearchQuery{Query: "x", Fusion: "average"}, true},
		{"blend fusion", &SearchQuery{Query: "x", Fusion: FusionBlend, Bias: 0.3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if tt.query.TopK == 0 {
					t.Error("expected default top_k to be set")
				}
				if tt.query.TopK > 100 {
					t.Errorf("expected top_k capped at 100, got %d", tt.query.TopK)
				}
				if tt.query.Fusion == "" {
					t.Error("expected default fusion policy to be set")
				}
				if tt.query.Candidates == 0 {
					t.Error("expected default candidate count to be set")
				}
			}
		})
	}
}

func TestBuildOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    *BuildOptions
		wantErr bool
	}{
		{"defaults", &BuildOptions{}, false},
		{"deep mode", &BuildOptions{Mode: ModeDeep}, false},
		{"unknown mode", &BuildOptions{Mode: "thorough"}, true},
		{"overlap larger than size", &BuildOptions{ChunkSize: 100, ChunkOverlap: 100}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if tt.opts.Mode == "" {
					t.Error("expected default mode to be set")
				}
				if tt.opts.ChunkSize <= 0 {
					t.Error("expected default chunk size to be set")
				}
				if tt.opts.ChunkOverlap < 0 || tt.opts.ChunkOverlap >= tt.opts.ChunkSize {
					t.Errorf("expected overlap normalized, got %d/%d", tt.opts.ChunkOverlap, tt.opts.ChunkSize)
				}
			}
		})
	}
}

func TestChunkID_Deterministic(t *testing.T) {
	a := ChunkID("doc", 3, 1)
	b := ChunkID("doc", 3, 1)
	if a != b {
		t.Errorf("ChunkID not deterministic: %q vs %q", a, b)
	}
	if a == ChunkID("doc", 3, 2) || a == ChunkID("doc", 4, 1) {
		t.Error("ChunkID must differ across page/index")
	}
}

func TestGroupByPage_PreservesOrder(t *testing.T) {
	results := []*QueryResult{
		{DocumentID: "a", Page: 2, Rank: 1},
		{DocumentID: "b", Page: 1, Rank: 2},
		{DocumentID: "a", Page: 2, Rank: 3},
	}
	groups := GroupByPage(results)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].DocumentID != "a" || groups[0].Page != 2 {
		t.Errorf("first group should be the best-ranked page, got %s page %d", groups[0].DocumentID, groups[0].Page)
	}
	if len(groups[0].Results) != 2 || groups[0].Results[0].Rank != 1 || groups[0].Results[1].Rank != 3 {
		t.Errorf("group must keep fused order, got %+v", groups[0].Results)
	}
}
