// Package exclude removes well-known system libraries from extraction
// outcomes.
//
// Nearly every Android binary links against the C runtime and the logging
// libraries, so drawing those edges adds noise without information. A Set
// names the libraries to drop and Filter applies it to an outcome.
package exclude
