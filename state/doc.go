/*
Package state contains a state machine, contained in the Channel type, for
managing a one-way payment channel.

The Channel type once constructed contains functions for three categories of
operations:
  - Open: Funding the channel and exchanging refund signatures.
  - Payment: Issuing updates that increase the amount owed to the payee.
  - Close: Settling on the latest update, or expiring to the refund once the
    refund's relative timelock has matured.

Value flows from the payer to the payee only. Update amounts are monotonically
non-decreasing, which is what makes it safe for the payer to hand the payee a
fully spendable payment transaction on every update: broadcasting any older
update only pays the payee less.

The open and payment operations are broken into propose/confirm steps, with
the returned agreements flowing from one step to the next:

	+-----------+      +-----------+
	|   Payer   |      |   Payee   |
	+-----+-----+      +-----+-----+
	      |                  |
	   Propose               |
	      +----------------->+
	      |               Confirm
	      +<-----------------+
	      |                  |

Lifecycle transitions that depend on external facts, such as funding
confirmation and chain height, take those facts as explicit parameters. The
Channel never performs network or storage I/O.

The Channel's mutating operations are serialized by an internal lock, so a
single Channel is safe to drive from multiple goroutines. Every transition
either fully succeeds or leaves the Channel untouched.
*/
package state
