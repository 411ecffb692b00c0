/*
Package network implements a federated consensus network: cross-organization
membership, privacy-tiered evidence publication, benchmark aggregation, and
confidence-weighted quorum voting on shared evidence.

A Network instance holds no transport. Member organizations, published
evidence, and ballots are delivered to it through an already-reliable channel
supplied by the caller; the package models the shared state and the agreement
rules only.

Published evidence never carries the raw record. Publish redacts identifying
payload keys, projects the remaining metrics according to the requested
privacy level, and replaces the publishing organization's identity with a
one-way hash.
*/
package network
