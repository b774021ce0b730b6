// Package view provides view sinks for reactive stores.
//
// A view sink receives every effective write of a store and renders it.
// Document renders into an in-memory element tree, Hub pushes updates to
// browsers over WebSocket, and Fanout combines several sinks.
package view
