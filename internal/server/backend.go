package server

import (
	"context"

	"resumeforge/internal/apiclient"
	"resumeforge/internal/session"
	"resumeforge/internal/types"
)

// sessionBackend sends workflow calls with the token of the session found in ctx.
// Workflows are created before any request exists, so the token is resolved per call.
type sessionBackend struct {
	client *apiclient.Client
}

func (b sessionBackend) authed(ctx context.Context) *apiclient.Client {
	if sess := session.FromContext(ctx); sess != nil {
		return b.client.WithToken(sess.Token)
	}
	return b.client
}

func (b sessionBackend) Generate(ctx context.Context, req types.GenerateRequest) (*types.GenerateResult, error) {
	return b.authed(ctx).Generate(ctx, req)
}

func (b sessionBackend) Score(ctx context.Context, req types.ScoreRequest) (*types.ScoreResult, error) {
	return b.authed(ctx).Score(ctx, req)
}

func (b sessionBackend) Optimize(ctx context.Context, req types.OptimizeRequest) (*types.OptimizeResult, error) {
	return b.authed(ctx).Optimize(ctx, req)
}

func (b sessionBackend) Save(ctx context.Context, req types.SaveRequest) (*types.SaveAck, error) {
	return b.authed(ctx).Save(ctx, req)
}
