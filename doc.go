// Package lazyload delays and prioritizes queries of a query.Client.
//
// Every query gets a priority. The priority decides how long the query waits
// before it is allowed to fetch (high: immediately, medium: 100ms, low:
// 300ms, plus an optional extra delay) and the cache policy it is observed
// with (stale time, retry count, refetch on focus):
//
//	l := lazyload.New(query.NewClient())
//	q := lazyload.Query(l, query.Key{"carteira", user}, fetchCarteira, lazyload.QueryOptions{
//		Priority: lazyload.PriorityHigh,
//	})
//	defer q.Close()
//
// Progressive starts several queries at once and summarizes their state:
//
//	p := lazyload.NewProgressive(l, []lazyload.Descriptor[any]{
//		{Key: query.Key{"resumo"}, Fn: resumo, Priority: lazyload.PriorityHigh},
//		{Key: query.Key{"graficos"}, Fn: graficos, Priority: lazyload.PriorityLow},
//	})
//	defer p.Close()
//	status, err := p.Wait(ctx)
//
// Caching, deduplication and retries are left to the query package.
package lazyload
