package viewed

import "context"

// Mirror is the authenticated server-side copy of the history. Both calls
// swallow their own failures.
type Mirror interface {
	FetchRemote(ctx context.Context, credential string) []TrackedItem
	PushRemote(ctx context.Context, credential string, id ItemID)
}

// Credentials yields the bearer token at call time; "" means signed out.
type Credentials interface {
	Token(ctx context.Context) string
}

// Persistence is the durable local copy of the history. Read returns an
// error only when the backend could not be reached; absent or corrupt data
// reads as empty.
type Persistence interface {
	Read(ctx context.Context) ([]TrackedItem, error)
	Save(ctx context.Context, items []TrackedItem) error
	Erase(ctx context.Context) error
}
