// Package starnotary defines the wire contract of the star notary service:
// inbound requests parsed once at the boundary and the responses assembled
// from session, authentication and ledger results.
package starnotary
