// Package redisconn parses the deployment's Redis connection strings, which
// arrive either as redis:// URLs or as "host:port,password=...,ssl=true"
// fragments from the hosting environment.
package redisconn

import (
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Options parses connStr into client options.
func Options(connStr string) *redis.Options {
	opts, err := redis.ParseURL(connStr)
	if err == nil {
		return opts
	}
	parts := strings.Split(connStr, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
