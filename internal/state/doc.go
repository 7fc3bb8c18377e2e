// Package state persists the migration run journal in SQLite.
//
// Each run records its root, import mode, final counters and the assets
// the destination store accepted. A later run over the same root can
// resume from an unfinished run by skipping those assets. Lock guards the
// state directory so two migrations never write the journal at once.
package state
