package cache

import "time"

// Row is one persisted record of a result set.
type Row struct {
	// URLHash is HashKey of the request key the set was stored under
	URLHash string

	// Token identifies the result set
	Token string

	// InsertTime is when the set was stored (unix seconds)
	InsertTime int64

	// Index is the position of the record in the set, starting at 0
	Index int

	// Value is the JSON encoding of the record
	Value []byte
}

// IsExpired returns true if the row is older than ttl at now.
func (r Row) IsExpired(now time.Time, ttl time.Duration) bool {
	return r.InsertTime < expiryCutoff(now, ttl)
}

// expiryCutoff is the oldest insert time still readable at now.
func expiryCutoff(now time.Time, ttl time.Duration) int64 {
	return now.Add(-ttl).Unix()
}
