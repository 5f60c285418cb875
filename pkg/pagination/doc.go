// Package pagination provides the bounded fan-out/fan-in used for every fetch
// stage of a run.
//
// A Collector runs one short-lived worker pool per call: keys are queued on a
// channel, a fixed number of workers each perform one blocking fetch per key,
// and successful results are appended to a mutex-guarded slice. The call
// returns only after every worker has drained the queue. Completion order is
// not preserved.
//
// A failed fetch is logged as a warning and contributes nothing; it is never
// retried and never fails the call. Only context cancellation does.
//
// A Paginator drives a Collector over page indices with an explicit
// (start, end) loop instead of recursion:
//
//	collector := pagination.NewCollector[int, *swapi.PeoplePage]("people", pagination.DefaultConfig(), logger)
//	paginator := pagination.NewPaginator(collector)
//	pages, end, err := paginator.FetchRange(ctx, fetchPage, 0, 9)
//
// After each batch it stops as soon as any page fetched so far reports that
// no further page exists, or when a batch yields no page at all; otherwise it
// fetches the single next page.
package pagination
