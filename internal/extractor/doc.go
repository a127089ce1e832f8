// Package extractor is the boundary to per-format content extractors.
//
// An Extractor turns a file and its classification into an opaque payload
// that the store keeps verbatim. The Registry picks one by extension; the
// built-in extractors cover file system facts and PDF headers, and parsers
// for CAD or office formats plug in through Register.
package extractor
