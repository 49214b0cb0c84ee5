// Package main provides the entry point for the scanlibs CLI.
//
// scanlibs reads ELF binaries and shared libraries, lists the libraries
// each one links against or names in its read-only data, and plots the
// resulting dependency graph.
//
// Usage:
//
//	scanlibs scan [files...]
//	scanlibs scan --plot --deps-file deps.txt
//
// See --help for all available options.
package main

func main() {
	Execute()
}
