// Package engine serializes concurrent submissions into one counting game.
//
// ARCHITECTURE:
//
// Admission Queue + Single-Writer Loop:
// Every submission reserves a ticket the moment it arrives. Evaluation
// (normalize, evaluate, score) then runs on the submitter's goroutine,
// bounded by a semaphore, and fills the ticket. Engine.Run() pops the head
// ticket only once it is filled, so transitions happen one at a time and
// in arrival order even when a later, simpler expression finishes first.
//
// Transition Flow:
//  1. Submit() reserves a ticket (arrival order is fixed here)
//  2. Text that fails the allow-list or the evaluator discards its ticket
//  3. The filled ticket reaches the head; Run() applies it to the Machine
//  4. The Checkpointer persists the transition and a state snapshot
//  5. The outcome is handed back to the waiting Submit() call
//
// Configuration swaps (Reconfigure) travel through the same queue, so a
// table or policy change never lands in the middle of a transition.
//
// The only cancellation point is the evaluator deadline. A transition that
// has been admitted is never cancelled.
package engine
