// Package quorum implements the weighted-threshold agreement primitive
// shared by block consensus (stake weights) and federated evidence
// consensus (confidence weights).
//
// A Store keeps an append-only ballot list per subject id. Submitting is
// not idempotent: a voter that votes twice is counted twice, so callers
// are responsible for not duplicating votes.
package quorum
