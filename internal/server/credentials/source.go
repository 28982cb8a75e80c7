package credentials

import "context"

// Source is a backing store of credential records. Records are returned in
// storage order; duplicates are allowed and resolved by the Store.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
}
