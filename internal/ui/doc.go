// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// Two standalone views are provided:
//  1. [WatchModel] : Follow a live session with chat, reactions, and the viewer count
//  2. [InboxModel] : Browse, read, and hide notifications while the live feed runs
//
// Each model implements bubbletea's standard Init/Update/View pattern. Channel
// and inbox updates flow in through dedicated wait commands so the render loop
// never blocks on the socket.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
