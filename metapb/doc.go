// Package metapb defines the metadata records persisted by the tablet meta
// store: tablet headers, rowsets, meta log entries and the schema and
// version structures they embed.
//
// Records are encoded in the protobuf wire format. Fields whose zero value
// is indistinguishable from absence are omitted; fields where presence
// matters are pointers. Unknown fields are skipped on decode, so records
// written by newer versions remain readable.
//
// The JSON form uses snake_case field names and enum value names, and is
// the format of the store's import and export documents.
package metapb
