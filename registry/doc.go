// Package registry tracks the validators that vote on sealed blocks and
// performs structural block validation.
//
// Validation is pure: it never mutates state and reports problems as a
// list of error strings rather than failing on the first one. Consensus on
// a block hash is delegated to the quorum package with validator stake as
// the ballot weight.
package registry
