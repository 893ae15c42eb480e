// Package preflight provides readiness checks for the filesystem paths and
// external binaries streamer depends on.
//
// These checks run in two contexts:
//   - The server runs RunAll at startup and logs every failure. A missing
//     ffmpeg does not stop the server; jobs fail individually instead.
//   - The CLI "streamer check" command prints the same results as a table.
package preflight
