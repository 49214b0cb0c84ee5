// Package depsfile reads and writes the deps file, the line-oriented text
// form of a scan.
//
// Each record starts with an unindented line naming the scanned file.
// Libraries follow, one per line, indented by two spaces. Linked libraries
// come first; a line holding only "." switches to runtime candidates.
// Files that were not ELF images are written as "# name".
//
//	bin/app
//	  libfoo.so
//	  libbar.so
//	  .
//	  libbaz.so
//	# etc/build.prop
//
// Trailing whitespace is not significant and blank lines are ignored.
// Decoding what Encode wrote gives back an equal stream.
package depsfile
