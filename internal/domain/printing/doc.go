// Package printing contains the printing domain: snapshots of native printers
// and queue entries, print options and settings, the error kinds surfaced to
// callers, and the PrintBackend port every native spooler adapter implements.
//
// The host operating system owns all printer and job state. Nothing in this
// package is persisted or cached; values are read, returned and dropped.
package printing
