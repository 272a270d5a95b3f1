// Package redis opens go-redis clients from a Config.
//
// Open validates the URL (redis:// or rediss://), applies pool defaults
// and pings the server, retrying a few times before giving up:
//
//	client, err := redis.Open(ctx, redis.Config{URL: "redis://localhost:6379/0"})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Healthcheck and Shutdown adapt a client to readiness checks and shutdown
// hooks. The session package uses this package for its redis backend.
package redis
