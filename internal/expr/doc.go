// Package expr turns participant-authored math notation into integers.
//
// Processing happens in three steps, each usable on its own:
//
//  1. StripComments and Allowed decide whether a message is an expression
//     at all. Chat text that fails the allow-list is never parsed.
//  2. Normalize rewrites surface syntax (√, ∛, postfix !) into the function
//     call form the parser understands. It is total and idempotent.
//  3. Evaluator.Evaluate parses and evaluates the normalized text under a
//     hard deadline, a nesting limit and a node budget, then rounds the
//     result half-up to an int64.
//
// The grammar is deliberately small: + - * / ^, unary signs, parentheses,
// decimal literals and the functions sqrt, cbrt and factorial. There are no
// variables, no assignment and no user-defined functions.
package expr
