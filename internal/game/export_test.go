package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportResultsAppends(t *testing.T) {
	file := filepath.Join(t.TempDir(), "results", "out.txt")
	final := FinalResults{
		Leaderboard: []LeaderboardEntry{{Name: "Alice", Score: 45}, {Name: "Bob", Score: 20}},
		Winner:      "Alice",
		TotalRounds: 5,
	}

	if err := ExportResults(file, "ABCD", final); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if err := ExportResults(file, "EFGH", final); err != nil {
		t.Fatalf("second export failed: %v", err)
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	out := string(raw)
	if !strings.Contains(out, "Session ABCD") || !strings.Contains(out, "Session EFGH") {
		t.Fatal("both sessions should be appended")
	}
	if !strings.Contains(out, "Winner: Alice") {
		t.Fatal("winner line missing")
	}
	if !strings.Contains(out, "1. Alice: 45 points") || !strings.Contains(out, "2. Bob: 20 points") {
		t.Fatal("leaderboard lines missing")
	}
}
