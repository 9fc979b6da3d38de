package model

import (
	"context"

	"github.com/google/uuid"
)

// Caller is the authenticated actor of a request. HospitalID scopes every
// read and write; UserID is recorded in created_by/updated_by.
type Caller struct {
	HospitalID uuid.UUID
	UserID     uuid.UUID
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	if !ok || c.HospitalID == uuid.Nil {
		return Caller{}, false
	}
	return c, true
}
