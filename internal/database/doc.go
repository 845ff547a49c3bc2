// Package database provides SQLite-based storage of audit history.
//
// Every audit run is stored with its full report as JSON plus a severity
// summary, so runs of the same document can be listed and compared
// later without re-auditing.
//
// We use SQLite via modernc.org/sqlite, a CGO-free driver: the history is
// a single file under the XDG data directory and the binary cross-compiles
// without a C toolchain.
package database
