// Package notify announces display changes to external webhooks.
//
// Supported types are "slack" (a {"text": ...} payload) and "http" (the Event
// as JSON). Webhook URLs are read from the environment variable named in the
// config at delivery time.
package notify
