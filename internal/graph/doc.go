// Package graph folds a scan stream into a directed dependency graph.
//
// Nodes are keyed by label, the file name of a scanned path or library.
// Distinct paths that share a file name collapse into one node. Edges point
// from a scanned file to each library it references and record whether the
// library is linked or only named in read-only data.
//
// The graph does not know how it is drawn. Renderers implement Sink and
// receive the graph through Emit.
package graph
