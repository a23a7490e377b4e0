// Package platform isolates OS differences the updater cares about: permission
// bits and path comparison.
package platform
