// Package harness plays scripted counting games against a live engine.
//
// A scenario starts from a known state, sends chat messages one at a time
// through the same dispatcher the bot uses, and checks the outcome of each
// message and the final state persisted to SQLite.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	policy: continue            # or reset
//	initial:                    # optional starting state
//	  current_count: 41
//	  last_contributor: U02BOB
//	milestones:                 # optional additions to the default table
//	  - { value: 7, tag: four_leaf_clover }
//	names: { U01ALICE: alice }
//	steps:
//	  - participant: U01ALICE
//	    text: "6*7"
//	    expect:
//	      outcome: accepted
//	      count: 43
//	      reaction: rocket
//	assertions:
//	  - type: trace_count
//	    outcome: rejected
//	    count: 1
//	  - type: final_state
//	    table: milestones
//	    where: { value: 42 }
//	    expect: { participant_id: U01ALICE }
//
// # Assertion Types
//
//   - trace_contains: an event matches participant/outcome/reason
//   - trace_count: exactly N events match participant/outcome/reason
//   - final_state: queries a store table and verifies expected values
//   - stats_contains: the rendered stats report contains a substring
//
// # Deterministic Testing
//
// Every scenario runs with an in-memory SQLite database, sequential
// transition IDs, a fresh logical clock and a wall clock that steps one
// minute per reading. Playing a scenario twice yields identical traces,
// which are compared against golden files with RunWithGolden.
package harness
