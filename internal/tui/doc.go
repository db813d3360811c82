// Package tui is the terminal front end. It renders app.View snapshots with
// bubbletea and lipgloss and turns key presses into session calls; it never
// touches engine state directly.
package tui
