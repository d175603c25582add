// Package ui implements the interactive watch screen.
//
// The screen is a Bubble Tea program fed by the watch scheduler: each
// completed discovery round arrives as a message and replaces the
// device table in place. A spinner runs until the first round lands,
// and between rounds the header shows the round count and the age of
// the data on screen. Quitting the screen cancels the scheduler's
// context, so the loop stops cleanly (an in-flight round still
// completes and persists before exit).
//
// Non-interactive terminals should use watch --plain instead, which
// prints each round to stdout without any screen handling.
package ui
