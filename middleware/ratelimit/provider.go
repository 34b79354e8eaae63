package ratelimit

import (
	"go.uber.org/fx"
)

func ProvideRateLimitStore() Store {
	return NewMemoryStore()
}

var Module = fx.Options(
	fx.Provide(ProvideRateLimitStore),
)
