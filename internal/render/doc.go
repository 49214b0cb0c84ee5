// Package render writes dependency graphs as text graph descriptions.
//
// Three formats are supported: Graphviz DOT, Mermaid flowcharts and a
// Markdown document embedding the Mermaid chart with summary tables.
// Renderers only describe the graph; layout and rasterization are left to
// external tools such as dot(1) or a Mermaid viewer.
package render
