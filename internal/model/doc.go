// Package model defines the core data structures used throughout scanlibs.
//
// This package contains the following main types:
//   - OrderedSet: an insertion-ordered, duplicate-free sequence
//   - Outcome: the extraction result for one file (unparseable, or the
//     linked and runtime dependency lists)
//   - Record: a scanned path paired with its Outcome
//   - Stream: the ordered sequence of Records flowing through a scan
//   - Summary: aggregate counts over a Stream for reports and history
//
// Models live in their own package because extract, exclude, depsfile,
// graph, report and database all exchange them.
package model
