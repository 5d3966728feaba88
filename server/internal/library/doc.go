// Package library lists and resolves the selectable files of the shared
// static directory.
//
// New(dir, exclude) builds the index. Files() is the flat sorted list,
// Tree() the nested view used by the manager. Resolve(id) validates an
// identifier against the file system, Content(id) reads a file with an
// empty-string fallback, and Library itself is an http.FileSystem that only
// serves listable files.
//
// Watch(ctx, onChange) keeps the index fresh with fsnotify and reports
// changes to the caller.
package library
