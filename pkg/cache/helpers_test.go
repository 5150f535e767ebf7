package cache

import (
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/Sternrassler/dav-paginator/internal/testutil"
	"github.com/Sternrassler/dav-paginator/pkg/dav"
	"github.com/Sternrassler/dav-paginator/pkg/record"
	"github.com/rs/zerolog"
)

var testEpoch = time.Unix(1_700_000_000, 0)

// testConfig returns a config with predictable tokens and a fake clock.
func testConfig(clock Clock) Config {
	logger := zerolog.Nop()
	return Config{
		TTL:    TTL,
		Tokens: &testutil.SequentialTokens{},
		Clock:  clock,
		Logger: &logger,
	}
}

// testRecords converts n synthetic resources into records.
func testRecords(t *testing.T, n int) []record.Record {
	t.Helper()
	conv := record.NewConverter(dav.Resources(testutil.NewResources(n)))
	recs := slices.Collect(conv.All())
	if err := conv.Err(); err != nil {
		t.Fatalf("convert resources: %v", err)
	}
	return recs
}

// values yields recs with no trailing failure.
func values(recs []record.Record) iter.Seq2[record.Record, error] {
	return record.Checked(slices.Values(recs), nil)
}

// countingRecords yields recs and counts how many were pulled.
func countingRecords(recs []record.Record, pulled *int) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		for _, rec := range recs {
			*pulled++
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// failingRecords yields the first n of recs and then fails with err.
func failingRecords(recs []record.Record, n int, err error) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		for _, rec := range recs[:n] {
			if !yield(rec, nil) {
				return
			}
		}
		yield(record.Record{}, err)
	}
}
