// Package ledger defines the surface the oracle drives: read accessors for
// the sale, vault and token, mutating calls that return a receipt or an error,
// chain time control and the mapping between oracle accounts and addresses.
//
// Two implementations exist: internal/simledger runs the sale in process and
// internal/ethledger talks JSON-RPC to a development chain.
package ledger
