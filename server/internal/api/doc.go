// Package api implements the cueboard HTTP endpoints.
//
// New(ctrl, reg, lib) returns a Handler that serves:
//
//	GET      /select?file=<id>        select a file; file=undefined (or no file) clears
//	GET/POST /background?path=<id>   set the viewer background; empty clears
//	GET/POST /journal/toggle          flip the journal button flag
//	GET      /api/v1/state            current selection state (unset fields are null)
//	GET      /api/v1/files            flat list of selectable files
//	GET      /api/v1/tree             files nested by directory
//	GET      /api/v1/clients          live connections by role
//
// /select and /background answer {"message": "..."} with 200, or 404 when the
// identifier does not resolve. Other methods get 405 from the router.
// Register(r) mounts the same routes on a shared router.
package api
