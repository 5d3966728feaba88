// Package pages serves the browser-facing HTML.
//
//	GET /                  viewer home page
//	GET /manager           operator page: one button per file plus "None"
//	GET /display/{token}   the current resource; any stale token redirects to /
//	GET /static/...        library files
//
// The display page embeds .html files inline, renders .md files with
// goldmark and shows everything else as an image. Templates are embedded in
// the binary. Every page opens a WebSocket to /ws/viewer or /ws/manager and
// follows the pushed messages.
package pages
