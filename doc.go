/*
Command mimeparse parses email messages and MIME parts, and RFC 5322
date-times.

  - Content-Type, Content-Transfer-Encoding, Content-ID, Content-Description
    and Content-Disposition header fields of a part are parsed.
  - Multiparts are split on their boundaries, recursively with a maximum depth.
  - Texts are decoded from base64 or quoted-printable, and from UTF-8, US-ASCII
    or the ISO-8859 charsets.
  - Previews of the message text, including for HTML-only messages.

# Commands

	mimeparse [-config mimeparse.conf] [-loglevel level] [-logfmt] ...
	mimeparse parse [-tree] [-maxdepth n] [-preview] [-metrics] file.eml
	mimeparse date value
	mimeparse help [command ...]
	mimeparse config describe >mimeparse.conf
	mimeparse config test mimeparse.conf
	mimeparse version

The configuration file is optional. Specify it through the -config flag or
MIMEPARSECONF environment variable.

# mimeparse parse

Parse a message or MIME part from a file and print its structure.

The file starts with a header section, followed by an empty line and the body.
Only the Content-* header fields are interpreted. Without -tree, only the
top-level entity is resolved, with the parts of a multipart listed but not
interpreted. With -tree, all parts are resolved, and any error in a part fails
the whole message.

Text is decoded from its transfer encoding and charset. Entities that cannot be
interpreted, e.g. images, or texts in unsupported charsets, are printed as
unknown with their size.

	usage: mimeparse parse [-tree] [-maxdepth n] [-preview] [-metrics] file.eml
	  -maxdepth int
	    	maximum multipart nesting depth, overrides the configuration file
	  -metrics
	    	print resolve counters when done
	  -preview
	    	print a preview of the message text
	  -tree
	    	resolve all parts recursively

# mimeparse date

Parse an RFC 5322 date-time and print its fields.

For example:

	mimeparse date "Mon, 12 Apr 2023 10:25:03 +0000"

The day of the week is optional, and is not checked against the date. The time
is also printed in UTC.

	usage: mimeparse date value

# mimeparse help

Prints help about matching commands.

If multiple commands match, they are listed along with the first line of their help text.
If a single command matches, its usage and full help text is printed.

	usage: mimeparse help [command ...]

# mimeparse config describe

Prints an annotated empty configuration for use as mimeparse.conf.

The configuration file is optional. Fields that are not needed can be removed.

	usage: mimeparse config describe >mimeparse.conf

# mimeparse config test

Parses and checks the configuration file and prints the effective configuration.

	usage: mimeparse config test mimeparse.conf

# mimeparse version

Prints this mimeparse version.

	usage: mimeparse version
*/
package main
