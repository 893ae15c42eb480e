// Package textutil normalizes user-supplied text before it touches the
// filesystem.
package textutil
