// Package updater replaces an installed copy of the tool with the latest
// published package. A run waits for the tool to hand over its install path
// through a small file in the temp dir, downloads the package archive with a
// fixed retry budget, and applies it either by swapping the whole install
// folder (keeping a timestamped backup) or by overwriting files in place.
//
// Components never prompt the operator. Failures come back as *Error values
// whose Kind selects the process exit code and the operator diagnostic.
package updater
