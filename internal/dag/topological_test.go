package dag

import (
	"sort"
	"testing"
)

func TestTopologicalSorter_Levels(t *testing.T) {
	t.Run("Simple Chain", func(t *testing.T) {
		ts := NewTopologicalSorter([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}})
		levels, err := ts.GetLevels()
		if err != nil {
			t.Fatalf("GetLevels failed: %v", err)
		}
		if len(levels) != 3 {
			t.Fatalf("Expected 3 levels, got %v", levels)
		}
		for i, want := range []string{"A", "B", "C"} {
			if len(levels[i]) != 1 || levels[i][0] != want {
				t.Errorf("Level %d should be [%s], got %v", i, want, levels[i])
			}
		}
	})

	t.Run("Diamond DAG", func(t *testing.T) {
		// A -> B, A -> C, B -> D, C -> D
		nodes := []string{"A", "B", "C", "D"}
		edges := [][2]string{
			{"A", "B"},
			{"A", "C"},
			{"B", "D"},
			{"C", "D"},
		}

		levels, err := NewTopologicalSorter(nodes, edges).GetLevels()
		if err != nil {
			t.Fatalf("GetLevels failed: %v", err)
		}

		if len(levels) != 3 {
			t.Fatalf("Expected 3 levels, got %d", len(levels))
		}
		if len(levels[0]) != 1 || levels[0][0] != "A" {
			t.Errorf("Level 0 should be [A], got %v", levels[0])
		}
		sort.Strings(levels[1])
		if len(levels[1]) != 2 || levels[1][0] != "B" || levels[1][1] != "C" {
			t.Errorf("Level 1 should be [B C], got %v", levels[1])
		}
		if len(levels[2]) != 1 || levels[2][0] != "D" {
			t.Errorf("Level 2 should be [D], got %v", levels[2])
		}
	})

	t.Run("Two Parents One Child", func(t *testing.T) {
		// Pedigree shape: both parents are roots, the child waits for both.
		levels, err := NewTopologicalSorter(
			[]string{"Mom", "Dad", "Kid"},
			[][2]string{{"Mom", "Kid"}, {"Dad", "Kid"}},
		).GetLevels()
		if err != nil {
			t.Fatalf("GetLevels failed: %v", err)
		}
		if len(levels) != 2 || len(levels[0]) != 2 || levels[1][0] != "Kid" {
			t.Errorf("Unexpected levels: %v", levels)
		}
	})

	t.Run("Cycle", func(t *testing.T) {
		_, err := NewTopologicalSorter(
			[]string{"A", "B", "C"},
			[][2]string{{"A", "B"}, {"B", "C"}, {"C", "B"}},
		).GetLevels()
		if err == nil {
			t.Error("Expected cycle error")
		}
	})

	t.Run("Levels Do Not Consume Sorter", func(t *testing.T) {
		ts := NewTopologicalSorter([]string{"A", "B"}, [][2]string{{"A", "B"}})
		first, _ := ts.GetLevels()
		second, _ := ts.GetLevels()
		if len(first) != len(second) {
			t.Errorf("Expected repeatable levels, got %v then %v", first, second)
		}
	})
}
