// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting runs a vote end to end:

 1. resolve the poll (id or slug)
 2. admission.Gate.Admit: option, voting window, one record per voter
 3. counter.Counter.Increment on the chosen option
 4. publish the poll id on the relay; every process's hub pushes new state

Steps 2 and 3 run under the poll's read lock so a reconciliation (write lock)
never interleaves with them. Step 4 runs in its own goroutine and never
delays the response.

The ledger and the counter are separate writes. If the increment still fails
after retries, the vote is reported as admitted, the failure is logged with
event=counter_desync_risk and the poll is queued for reconcile.
*/
package voting
