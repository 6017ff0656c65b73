// Package content is the boundary to the offline text-processing pipeline.
// The pipeline parses chat exports, builds per-author profiles and writes a
// game_data.json file; this package only loads that file and partitions its
// rounds into the real and generated question lists the engine plays through.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var ErrNoRounds = errors.New("game data contains no rounds")

// Question is one gameplay unit as produced by the pipeline. The
// distinctiveness and similarity metadata are opaque to the engine and are
// republished verbatim in round results.
type Question struct {
	Text            string   `json:"message"`
	CorrectAuthor   string   `json:"correct_author"`
	Choices         []string `json:"choices"`
	Distinctiveness *float64 `json:"distinctiveness_score"`
	Similarity      *float64 `json:"bert_similarity"`
	Synthetic       bool     `json:"is_synthetic"`
}

// Pool holds the ordered question lists for one upload, real rounds first.
// Order within each list is fixed by the pipeline and never reshuffled here.
type Pool struct {
	Real         []Question
	Generated    []Question
	Superlatives json.RawMessage
}

func (p *Pool) TotalRounds() int {
	return len(p.Real) + len(p.Generated)
}

func (p *Pool) Empty() bool {
	return p == nil || p.TotalRounds() == 0
}

type gameData struct {
	Rounds       []Question      `json:"game_rounds"`
	Superlatives json.RawMessage `json:"stats"`
}

// Load reads a pipeline game_data.json file and splits its rounds by content
// type. Real rounds keep their file order, as do generated ones.
func Load(path string) (*Pool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game data: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Pool, error) {
	var gd gameData
	if err := json.Unmarshal(raw, &gd); err != nil {
		return nil, fmt.Errorf("parse game data: %w", err)
	}
	if len(gd.Rounds) == 0 {
		return nil, ErrNoRounds
	}
	pool := &Pool{Superlatives: gd.Superlatives}
	for _, q := range gd.Rounds {
		if q.Synthetic {
			pool.Generated = append(pool.Generated, q)
		} else {
			pool.Real = append(pool.Real, q)
		}
	}
	return pool, nil
}
