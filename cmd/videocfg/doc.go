// Command videocfg inspects and edits persisted render settings layers.
//
// Every command loads the global layer, optionally applies a title
// (--title/--revision), and runs the capability validator before printing
// or saving anything, so the output matches what a running session would
// see.
package main
