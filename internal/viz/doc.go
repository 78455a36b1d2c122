// Package viz renders threshold statistics for the terminal.
//
//   - [SummaryTable]: per-threshold table, significant bits colored by level
//   - [BitsChart]: ASCII chart of significant bits against the threshold index
//   - [Summarize]: aggregate bit statistics of a run
//
// Colors come from the active [Theme]; [ThemeNames] lists the built-in ones.
package viz
