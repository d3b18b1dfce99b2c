// Package source holds the per-site contest fetchers. Each subpackage turns
// one upstream listing into []contest.Record filtered to a contest.Window.
package source
