// Package revision decides which record in a group is the current revision.
//
// A group is every record sharing (project, discipline, sheet). The current
// record is the completed record with the highest revision under
// types.CompareRevisions; equal revisions fall back to the latest
// modification time and then the path, and the tie is logged as
// types.ErrGroupResolutionConflict.
//
// Resolution holds a per-group lock (KeyedMutex) so two files of the same
// group processed in one batch cannot both claim the flag, while different
// groups resolve in parallel.
package revision
