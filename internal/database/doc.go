// Package database stores scan history in SQLite.
//
// Every saved scan keeps its stream in deps file form together with a
// summary and a content digest, and indexes each dependency edge so
// later runs can ask which binaries used a library. The driver is
// modernc.org/sqlite, so no cgo toolchain is needed.
package database
