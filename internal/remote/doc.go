// Package remote provides item processors that hand each ingested record to
// an external service.
//
// HTTPProcessor POSTs a record as a JSON object and classifies failures for
// the retry layer: transport failures and per-request timeouts are transient,
// non-2xx responses become service errors carrying the status code, and a
// 2xx response is decoded as the item's output. EchoProcessor returns the
// record unchanged and is used for dry runs.
package remote
