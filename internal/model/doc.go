// Package model holds the reference state of a KYC-gated crowdsale.
//
// The reference state is an independent, in-memory prediction of what the
// ledger under test should look like after every accepted command. It is
// threaded through the oracle as a value: transitions clone the incoming
// state, mutate the clone and return it, so a state seen by a caller is never
// changed behind its back.
//
// All amounts are arbitrary-precision integers in base units (wei for
// contributions, token base units for token balances). Accounts are small
// integer indexes into the account set provided by the ledger; two sentinel
// values stand for the zero address and for any address outside that set
// (for example the token contract or the sale contract itself).
package model
