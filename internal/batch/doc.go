// Package batch drains an ordered item stream in adaptively sized batches.
//
// Before every batch the scheduler takes a forced memory sample, resizes
// the next batch for the observed pressure level, and pauses to let the
// runtime reclaim memory when pressure is elevated. Batch size never drops
// below the configured floor, so a run under sustained pressure slows down
// but always progresses. Cancellation is observed only between batches.
package batch
