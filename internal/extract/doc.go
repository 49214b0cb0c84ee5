// Package extract reads ELF images and reports the libraries they depend on.
//
// Two kinds of references are collected:
//   - linked libraries: the DT_NEEDED entries of the .dynamic section, in
//     declaration order. These are authoritative.
//   - runtime candidates: NUL-terminated strings in .rodata that look like
//     a shared library name ("libfoo.so", optionally behind a directory
//     prefix such as "/system/lib/"). These hint at dlopen calls and may
//     include false positives.
//
// Input that is not a well-formed ELF image never produces an error from
// Extract; it yields model.Unparseable(). Only I/O failures in
// Extractor.ExtractFile surface as errors (wrapping ErrRead).
package extract
