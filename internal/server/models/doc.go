// Package models defines the documents persisted in the document store.
// All timestamps are epoch milliseconds.
package models
