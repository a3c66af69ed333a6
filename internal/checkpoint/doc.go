// Package checkpoint persists checkpoints into a provider bank.
//
// A checkpoint occupies one bank section:
//
//	checkpoints/<id>/metadata                 JSON document, written first, removed last
//	checkpoints/<id>/graph                    msgpack encoded resource graph
//	checkpoints/<id>/resources/<type>/<id>/…  data written by protection plugins
//
// Metadata status moves protecting -> available|error -> deleting. The
// metadata object is the checkpoint's existence marker: a checkpoint whose
// metadata is gone does not exist, whatever other objects remain.
package checkpoint
