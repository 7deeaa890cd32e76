// Package harness runs hand-written crowdsale scenarios through the oracle.
//
// A scenario is a YAML file naming the sale configuration, a flow of
// explicit commands with the outcome each one should have, and assertions
// on the final state. The harness deploys the sale on a fresh simulated
// ledger, drives every command through an oracle.Driver (so each accepted
// command is also checked against the model), records the run in an
// in-memory store and reads the trace back for golden comparison.
//
// Example:
//
//	name: approved_purchase
//	description: An approved investor buys inside the bonus window.
//	sale:
//	  start_offset: 0
//	  cap: "100"
//	flow:
//	  - kind: validatePurchase
//	    from: owner
//	    target: acct1
//	    expect: accepted
//	assertions:
//	  - type: state
//	    field: kyc
//	    account: acct1
//	    equals: approved
package harness
