// Package ethledger implements the ledger interfaces over JSON-RPC against a
// development chain that already has the sale deployed.
//
// The node must support the ganache-style test methods evm_snapshot,
// evm_revert, evm_increaseTime and evm_mine. Every session starts from a
// snapshot taken when it opens and reverts to it on Close, so each run and
// each shrink attempt sees the chain exactly as it was deployed.
//
// Transactions are signed locally with the configured private keys; the
// first key must be the sale's owner. Sends are submitted with a fixed gas
// limit so failing calls are mined and charged rather than refused during
// gas estimation.
package ethledger
