// Package logging provides file-based structured logging with rotation for markdownkeeper.
// The watch daemon always logs to ~/.markdownkeeper/logs/, since it runs detached and
// has no terminal to report to; foreground commands additionally tee to stderr.
package logging
