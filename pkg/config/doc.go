// Package config loads typed configuration structs from environment
// variables using github.com/caarlos0/env field tags, with an optional .env
// file picked up once per process for local development.
//
// Each component of the service declares its own Config struct next to its
// code (see pkg/redis, pkg/pg, pkg/httpserver); main composes them and loads
// everything through MustLoad before wiring dependencies.
package config
