// Package config loads the YAML pipeline definition file the CLI takes as
// input: task catalog, chunk operators, and (for the run subcommand)
// entry-point paths. It is the one place outside internal/bindgraph that
// knows how MetaTask/ChunkOperator are expressed on disk.
package config
