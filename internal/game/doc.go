// Package game holds the counting game's state and its transition rules.
//
// A Machine owns one State and applies evaluated submissions to it in the
// order it is given them. Rejections are ordinary outcomes, not errors:
// the machine reports why a submission failed, what to react with and
// what to say, and leaves delivery to the caller.
package game
