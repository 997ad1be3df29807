/*
Package tabletmeta is a durable metadata store for storage tablets.

For every tablet it tracks the tablet header, the committed rowsets, the
pending rowsets, a meta log of structural mutations and the per-segment
delete vectors of primary key tablets. Everything lives in one column family
of an embedded ordered key-value store (see package kv) under five key
families:

	tabletmeta_<tablet_id>_<schema_hash>        tablet header (decimal text)
	tlg_ <be64 tablet_id> <be64 log_id>         meta log entry
	trs_ <be64 tablet_id> <be32 rowset_seg_id>  committed rowset
	tpr_ <be64 tablet_id> <be64 version>        pending rowset
	dlv_ <be64 tablet_id> <be32 segment_id> <be64 MaxInt64-version>

Delete vector keys sort newest version first within a segment.

# Atomicity

Every composite operation (commit, apply, remove, JSON import) is one
atomic backend write. Callers compose their own atomic units with
Store.NewBatch and Store.Write.

# Concurrency

A Store is safe for concurrent use. It does not serialize writers: callers
serialize mutations of the same tablet and assign unique, increasing log ids
and versions.

# Errors

Errors belong to the classes declared in errors.go: ErrInvalidArgument,
ErrNotFound, ErrCorruption, ErrInternal, ErrIO and ErrNotSupported.
*/
package tabletmeta
