// Package report writes scan results.
//
// Writers share the Writer interface:
//   - TextWriter: the deps file form, readable and reloadable
//   - JSONWriter: records plus summary for tool integration
//   - MarkdownWriter: a summary document for sharing
package report
