// Package intake holds the data gathered by the intake wizard before a check
// run: organisation and employment details, the pay period, the three source
// documents and the reviewer's decisions on the fields extracted from them.
//
// A Snapshot is the frozen, validated view of that data handed to the check
// pipeline. Once built it is never mutated.
package intake
