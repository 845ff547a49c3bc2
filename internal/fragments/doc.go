// Package fragments reads the page fragments produced by an external PDF
// extraction step.
//
// A fragment file holds one document, either as an object
//
//	{"document": "q3.pdf", "document_type": "quarterly", "fragments": [...]}
//
// or as a bare array of fragments. JSON (.json) and MessagePack (.msgpack,
// .mpk) encodings are supported.
package fragments
