// Package staging reclaims space left behind by interrupted uploads.
package staging
