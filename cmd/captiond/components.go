package main

import (
	"context"
	"fmt"

	"github.com/kbukum/captionkit/bootstrap"
	"github.com/kbukum/captionkit/database"
	"github.com/kbukum/captionkit/media"
	"github.com/kbukum/captionkit/observability"
	"github.com/kbukum/captionkit/redis"
	"github.com/kbukum/captionkit/server"
)

type databaseComponent struct {
	db  *database.DB
	dsn string
}

func (c *databaseComponent) Name() string                    { return "database" }
func (c *databaseComponent) Start(ctx context.Context) error { return c.db.PingContext(ctx) }
func (c *databaseComponent) Stop(context.Context) error      { return c.db.Close() }
func (c *databaseComponent) Describe() string                { return "sqlite " + c.dsn }

func (c *databaseComponent) CheckHealth(ctx context.Context) observability.Health {
	return c.db.CheckHealth(ctx)
}

type redisComponent struct {
	client *redis.Client
	addr   string
}

func (c *redisComponent) Name() string                    { return "redis" }
func (c *redisComponent) Start(ctx context.Context) error { return c.client.Ping(ctx) }
func (c *redisComponent) Stop(context.Context) error      { return c.client.Close() }
func (c *redisComponent) Describe() string                { return c.addr }

func (c *redisComponent) CheckHealth(ctx context.Context) observability.Health {
	return c.client.CheckHealth(ctx)
}

// mediaComponent reports whether ffmpeg and ffprobe are installed. Without
// them detection still runs on synthetic features, so it never fails startup.
type mediaComponent struct {
	tk *media.Toolkit
}

func (c *mediaComponent) Name() string                { return "ffmpeg" }
func (c *mediaComponent) Start(context.Context) error { return nil }
func (c *mediaComponent) Stop(context.Context) error  { return nil }

func (c *mediaComponent) CheckHealth(context.Context) observability.Health {
	h := observability.Health{Name: "ffmpeg", Status: observability.HealthStatusUp}
	if !c.tk.Available() {
		h.Status = observability.HealthStatusDegraded
		h.Message = "ffmpeg/ffprobe not found, using synthetic features"
	}
	return h
}

type httpComponent struct {
	srv *server.Server
}

func (c *httpComponent) Name() string                    { return "http" }
func (c *httpComponent) Start(ctx context.Context) error { return c.srv.Start(ctx) }
func (c *httpComponent) Stop(ctx context.Context) error  { return c.srv.Stop(ctx) }
func (c *httpComponent) Describe() string                { return fmt.Sprintf("listening on %s", c.srv.Addr()) }

func (c *httpComponent) CheckHealth(context.Context) observability.Health {
	return observability.Health{Name: "http", Status: observability.HealthStatusUp}
}

var (
	_ bootstrap.Component = (*databaseComponent)(nil)
	_ bootstrap.Component = (*redisComponent)(nil)
	_ bootstrap.Component = (*mediaComponent)(nil)
	_ bootstrap.Component = (*httpComponent)(nil)
)
