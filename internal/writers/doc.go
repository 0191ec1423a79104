// Package writers serializes primer lists and plate order sheets.
//
// Design:
//   • Writers own all presentation knowledge (column names, delimiters, number formatting).
//   • aggregate and plate stay domain-only; pipeline stays orchestration-only.
//   • Files are replaced atomically so an interrupted run never leaves a torn sheet or checkpoint.
package writers
