package content

import (
	"errors"
	"testing"
)

const sampleGameData = `{
  "game_rounds": [
    {"round": 1, "message": "lol ok", "correct_author": "alex", "choices": ["alex", "barry"], "distinctiveness_score": 0.82, "bert_similarity": 0.4, "is_synthetic": false},
    {"round": 2, "message": "who said this", "correct_author": "barry", "choices": ["alex", "barry"], "is_synthetic": true},
    {"round": 3, "message": "brb", "correct_author": "chris", "choices": ["chris", "barry"], "is_synthetic": false}
  ],
  "stats": {"most_messages_sent": {"username": "alex", "count": 2000}}
}`

func TestParsePartitionsRounds(t *testing.T) {
	pool, err := Parse([]byte(sampleGameData))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(pool.Real) != 2 || len(pool.Generated) != 1 {
		t.Fatalf("expected 2 real / 1 generated, got %d / %d", len(pool.Real), len(pool.Generated))
	}
	// File order is preserved within each list.
	if pool.Real[0].CorrectAuthor != "alex" || pool.Real[1].CorrectAuthor != "chris" {
		t.Fatalf("real rounds out of order: %s, %s", pool.Real[0].CorrectAuthor, pool.Real[1].CorrectAuthor)
	}
	if pool.Generated[0].CorrectAuthor != "barry" {
		t.Fatalf("expected barry's generated round, got %s", pool.Generated[0].CorrectAuthor)
	}
	if pool.TotalRounds() != 3 {
		t.Fatalf("expected 3 total rounds, got %d", pool.TotalRounds())
	}
	if pool.Empty() {
		t.Fatal("pool should not be empty")
	}
}

func TestParseMetadataPassthrough(t *testing.T) {
	pool, err := Parse([]byte(sampleGameData))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	q := pool.Real[0]
	if q.Distinctiveness == nil || *q.Distinctiveness != 0.82 {
		t.Fatalf("distinctiveness should pass through, got %v", q.Distinctiveness)
	}
	if q.Similarity == nil || *q.Similarity != 0.4 {
		t.Fatalf("similarity should pass through, got %v", q.Similarity)
	}
	// Rounds without metadata keep nil, not zero.
	if pool.Generated[0].Distinctiveness != nil {
		t.Fatal("absent metadata should stay nil")
	}
	if len(pool.Superlatives) == 0 {
		t.Fatal("superlatives blob should be retained verbatim")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse([]byte(`{"game_rounds": []}`)); !errors.Is(err, ErrNoRounds) {
		t.Fatalf("expected ErrNoRounds, got %v", err)
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPoolEmpty(t *testing.T) {
	var p *Pool
	if !p.Empty() {
		t.Fatal("nil pool is empty")
	}
	if !(&Pool{}).Empty() {
		t.Fatal("zero pool is empty")
	}
}
