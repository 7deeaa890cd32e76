// Package simledger runs a KYC crowdsale, its vault and its token in process.
//
// It implements ledger.Session so the oracle can drive it exactly like a
// development chain: every mutating call mines a block holding one
// transaction and charges gas to the sender, reverted calls are mined and
// charged too, and sends from the zero address fail before reaching a block
// the way an unlockable signer does on a node.
//
// The contracts are written as checks followed by effects, so a reverted
// call leaves no trace besides its fee.
//
// Faults can be injected to make the ledger deliberately wrong in one
// respect; tests use them to show the oracle notices.
package simledger
