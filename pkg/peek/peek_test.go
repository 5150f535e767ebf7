package peek

import (
	"fmt"
	"iter"
	"slices"
	"testing"
)

// countingSeq yields 0..n-1 and records how many items were produced.
func countingSeq(n int, produced *int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < n; i++ {
			*produced++
			if !yield(i) {
				return
			}
		}
	}
}

func TestIterator_PrefixAndAll(t *testing.T) {
	const size = 7
	source := make([]int, size)
	for i := range source {
		source[i] = i
	}

	for _, n := range []int{0, 1, size, size + 5} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			var produced int
			it := New(countingSeq(size, &produced), n)
			defer it.Close()

			wantPrefix := source[:min(n, size)]
			if got := slices.Collect(it.Prefix()); !slices.Equal(got, wantPrefix) {
				t.Errorf("n=%d Prefix() = %v, want %v", n, got, wantPrefix)
			}
			if it.Len() != len(wantPrefix) {
				t.Errorf("n=%d Len() = %d, want %d", n, it.Len(), len(wantPrefix))
			}

			if got := slices.Collect(it.All()); !slices.Equal(got, source) {
				t.Errorf("n=%d All() = %v, want %v", n, got, source)
			}
			if produced != size {
				t.Errorf("n=%d source produced %d items, want %d", n, produced, size)
			}
		})
	}
}

func TestIterator_ConsumesOnlyPrefixEagerly(t *testing.T) {
	var produced int
	it := New(countingSeq(1000, &produced), 3)
	defer it.Close()

	if produced != 3 {
		t.Errorf("produced = %d after New, want 3", produced)
	}
}

func TestIterator_PrefixIsRestartable(t *testing.T) {
	var produced int
	it := New(countingSeq(10, &produced), 4)
	defer it.Close()

	first := slices.Collect(it.Prefix())
	second := slices.Collect(it.Prefix())
	if !slices.Equal(first, second) || len(first) != 4 {
		t.Errorf("Prefix() not restartable: %v vs %v", first, second)
	}
	if produced != 4 {
		t.Errorf("Prefix() advanced the source: produced = %d", produced)
	}
}

func TestIterator_EarlyBreakAndClose(t *testing.T) {
	var produced int
	it := New(countingSeq(100, &produced), 2)

	var got []int
	for v := range it.All() {
		got = append(got, v)
		if len(got) == 5 {
			break
		}
	}
	it.Close()
	it.Close()

	if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
		t.Errorf("All() with break = %v", got)
	}
	if produced != 5 {
		t.Errorf("produced = %d, want 5", produced)
	}
}
