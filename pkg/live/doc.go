// Package live serves editable resumes to browsers. A page request renders
// the current view inside a small shell; the shell then opens a websocket on
// which it sends the actions emitted by data-action attributes and receives a
// freshly rendered view after every change.
//
// Each websocket gets its own component and event loop, so the component's
// single-writer assumptions hold per connection.
package live
