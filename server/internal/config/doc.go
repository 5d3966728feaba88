// Package config loads the cueboard server configuration from cueboard.yaml.
//
// Config fields:
//   - Server.Host, Server.HTTPPort: listen address (default 0.0.0.0:8000)
//   - Server.LogLevel:              debug | info | warn | error (default info)
//   - Server.WriteTimeout:          bound on one WebSocket write (default 10s)
//   - Server.SendBuffer:            per-client outgoing queue depth (default 16)
//   - Library.Dir:                  shared static directory (default "static")
//   - Library.Exclude:              directory names never listed (default [unreachable])
//   - Library.Watch:                refresh the listing with fsnotify (default true)
//   - Notify.Webhooks:              slack | http targets, URL read from url_env
//
// Load(path) applies defaults, the YAML file, then CUEBOARD_* environment
// overrides, and validates the result. Watch(ctx, path, onChange) reloads the
// file on change; Library.Exclude and Server.LogLevel take effect live.
package config
