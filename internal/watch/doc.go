// Package watch keeps a deps file up to date with a directory tree.
//
// A Watcher scans every regular file below its root once, then follows
// fsnotify events: created and modified files are rescanned after a short
// quiet period, removed and renamed-away files are dropped, and new
// subdirectories are watched as they appear. After each change the deps
// file is rewritten in place through a temporary file and rename.
package watch
