package controller

import (
	"context"
	"gamewatch/internal/cache"
	"gamewatch/internal/database"
	"gamewatch/internal/rabbitmq"
)

type ServerController interface {
	// Checks runs every configured dependency check, keyed by dependency
	Checks(ctx context.Context) map[string]error
	Online() string
}

type serverController struct {
	db     database.Database
	cache  cache.Cache
	rabbit rabbitmq.Client
}

// NewServer builds the health controller. db and rabbit may be nil when the
// service runs without persistence or job queueing.
func NewServer(db database.Database, cache cache.Cache, rabbit rabbitmq.Client) ServerController {
	return &serverController{
		db:     db,
		cache:  cache,
		rabbit: rabbit,
	}
}

func (sc *serverController) Online() string {
	return "Online"
}

func (sc *serverController) Checks(ctx context.Context) map[string]error {
	checks := map[string]error{}
	if sc.db != nil {
		checks["mongodb"] = sc.db.Health()
	}
	if sc.cache != nil {
		checks["cache"] = sc.cache.Ping(ctx)
	}
	if sc.rabbit != nil {
		checks["rabbitmq"] = sc.rabbit.Health()
	}
	return checks
}
