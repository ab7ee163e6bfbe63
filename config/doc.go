/*
Package config holds the definition of the mimeparse config file.

The config file, mimeparse.conf, is optional. Without it, defaults are used.
The file is in "sconf" format:

  - Indentation with tabs only.
  - "#" as first non-whitespace character makes the line a comment. Lines with a
    value cannot also have a comment.
  - Values don't have syntax indicating their type. Strings are not quoted.
  - Fields that are optional can be left out completely.

See https://pkg.go.dev/github.com/mjl-/sconf for details.

An "empty" config file, as printed by "mimeparse config describe":

	# NOTE: This config file is in 'sconf' format. Indent with tabs. Comments must be
	# on their own line, they don't end a line. Do not escape or quote strings.
	# Details: https://pkg.go.dev/github.com/mjl-/sconf.
	#
	#
	# Default log level, one of: error, info, debug, trace.
	LogLevel:

	# Overrides of log level per package (e.g. message). (optional)
	PackageLogLevels:
		x:

	# Maximum nesting depth of multiparts. Messages nested more deeply are rejected.
	# Default: 50. (optional)
	MaxDepth: 0

	# Maximum size in bytes of a message file to parse. Default: 104857600 (100MB).
	# (optional)
	MaxBodySize: 0
*/
package config
