// Package status projects stored jobs into the read-only views served to
// clients. It never mutates the store and never caches, so every answer
// reflects the last committed write.
package status
