// Package deps locates the external executables the server shells out to and
// reports their versions for preflight checks and the startup snapshot.
package deps
