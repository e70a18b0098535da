package lazyload

import "github.com/abihf/lazy-loader/query"

// Loader creates lazy queries on top of a query client.
type Loader struct {
	*config
	client *query.Client
}

// New creates a Loader. A nil client is replaced by query.NewClient().
func New(client *query.Client, options ...Option) *Loader {
	if client == nil {
		client = query.NewClient()
	}
	return &Loader{
		config: newConfig(options),
		client: client,
	}
}

// Client returns the query client the loader delegates to.
func (l *Loader) Client() *query.Client {
	return l.client
}
