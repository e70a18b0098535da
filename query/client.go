package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrClientClosed is the error of a query fetched after its client was closed.
var ErrClientClosed = errors.New("query: client closed")

// CacheDriver stores the entries.
// you can use ARCCache or TwoQueueCache from github.com/hashicorp/golang-lru
type CacheDriver interface {
	Add(key interface{}, value interface{})
	Get(key interface{}) (interface{}, bool)
	Keys() []interface{}
}

// observer is the untyped view the client has of an Observer.
type observer interface {
	observedEntry() *entry
	options() Options
	refetch()
}

// Client manages query entries, fetches them for their observers and keeps
// at most one fetch per key in flight.
type Client struct {
	*config
	cancel context.CancelFunc
	locks  *keyLocker[string]

	mutex     sync.Mutex
	live      map[string]*entry
	liveRefs  map[string]int
	observers map[observer]struct{}
	listeners map[int]func(Key)
	nextID    int
}

// NewClient creates a Client. Without WithDriver entries are kept in an ARC
// cache of DefaultCacheSize entries.
func NewClient(options ...Option) *Client {
	cfg := &config{
		clock:      clockwork.NewRealClock(),
		ctx:        context.Background(),
		retryDelay: DefaultRetryDelay,
	}
	for _, o := range options {
		o(cfg)
	}
	if cfg.driver == nil {
		driver, err := NewARCDriver(DefaultCacheSize)
		if err != nil {
			driver = InMemoryCache()
		}
		cfg.driver = driver
	}
	if cfg.log == nil {
		cfg.log = discardLogger()
	}

	c := &Client{
		config:    cfg,
		locks:     newKeyLocker[string](),
		live:      map[string]*entry{},
		liveRefs:  map[string]int{},
		observers: map[observer]struct{}{},
		listeners: map[int]func(Key){},
	}
	c.ctx, c.cancel = context.WithCancel(cfg.ctx)
	return c
}

// Close cancels in-flight fetches. Later fetches settle with ErrClientClosed.
func (c *Client) Close() {
	c.cancel()
}

// entry returns the shared entry of key, creating it when needed. Entries
// that still have observers are found even if the driver evicted them.
func (c *Client) entry(key Key) *entry {
	hash := key.hash()
	unlock := c.locks.Lock(hash)
	defer unlock()

	c.mutex.Lock()
	e, ok := c.live[hash]
	c.mutex.Unlock()
	if ok {
		return e
	}

	if v, ok := c.driver.Get(hash); ok {
		if e, ok := v.(*entry); ok {
			return e
		}
	}
	e = newEntry(key)
	c.driver.Add(hash, e)
	return e
}

func (c *Client) attach(o observer) {
	e := o.observedEntry()
	hash := e.key.hash()

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.observers[o] = struct{}{}
	c.live[hash] = e
	c.liveRefs[hash]++
}

func (c *Client) detach(o observer) {
	e := o.observedEntry()
	hash := e.key.hash()

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, ok := c.observers[o]; !ok {
		return
	}
	delete(c.observers, o)
	c.liveRefs[hash]--
	if c.liveRefs[hash] <= 0 {
		delete(c.liveRefs, hash)
		delete(c.live, hash)
	}
}

func (c *Client) activeObservers() []observer {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	list := make([]observer, 0, len(c.observers))
	for o := range c.observers {
		list = append(list, o)
	}
	return list
}

// Subscribe registers fn to be called with the key of every entry whose state
// changed. It returns the function removing the subscription.
func (c *Client) Subscribe(fn func(Key)) (unsubscribe func()) {
	c.mutex.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mutex.Unlock()

	return func() {
		c.mutex.Lock()
		defer c.mutex.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) notify(key Key) {
	c.mutex.Lock()
	fns := make([]func(Key), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mutex.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

// Focus refetches the stale queries whose observers are enabled and opted in
// with RefetchOnWindowFocus.
func (c *Client) Focus() {
	now := c.clock.Now()
	for _, o := range c.activeObservers() {
		opts := o.options()
		if !opts.Enabled || !opts.RefetchOnWindowFocus {
			continue
		}
		if o.observedEntry().isStale(opts.StaleTime, now) {
			o.refetch()
		}
	}
}

// Invalidate marks every entry whose key starts with prefix as stale and
// refetches the ones with an enabled observer. A fetch already running for
// such a key does not make the entry fresh again.
func (c *Client) Invalidate(prefix Key) {
	marked := make(map[*entry]bool)
	mark := func(e *entry) {
		if !marked[e] {
			marked[e] = true
			e.invalidate()
		}
	}

	for _, k := range c.driver.Keys() {
		v, ok := c.driver.Get(k)
		if !ok {
			continue
		}
		if e, ok := v.(*entry); ok && e.key.HasPrefix(prefix) {
			mark(e)
		}
	}

	var refetch []observer
	for _, o := range c.activeObservers() {
		e := o.observedEntry()
		if !e.key.HasPrefix(prefix) {
			continue
		}
		mark(e)
		if o.options().Enabled {
			refetch = append(refetch, o)
		}
	}
	for _, o := range refetch {
		o.refetch()
	}
	c.log.Debug("queries invalidated", "prefix", prefix.String())
}

// SetQueryData stores value as the successful result of key.
func (c *Client) SetQueryData(key Key, value any) {
	c.entry(key).succeed(value, c.clock.Now())
	c.notify(key)
}

// GetQueryData returns the last successful value of key.
func (c *Client) GetQueryData(key Key) (any, bool) {
	e := c.entry(key)
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	if e.updatedAt.IsZero() {
		return nil, false
	}
	return e.data, true
}

type fetchFunc func(ctx context.Context) (any, error)

// fetch starts a fetch of e unless one is already running.
func (c *Client) fetch(e *entry, fn fetchFunc, retry int) {
	if !atomic.CompareAndSwapInt32(&e.isFetching, 0, 1) {
		return
	}
	if c.ctx.Err() != nil {
		e.fail(ErrClientClosed)
		atomic.StoreInt32(&e.isFetching, 0)
		c.notify(e.key)
		return
	}
	mark := e.beginFetch()
	c.log.Debug("fetch started", "key", e.key.String(), "retry", retry)
	c.notify(e.key)
	go c.run(e, fn, retry, mark)
}

// run fetches e with retries. mark is the invalidation mark taken when the
// fetch started.
func (c *Client) run(e *entry, fn fetchFunc, retry int, mark uint64) {
	defer func() {
		atomic.StoreInt32(&e.isFetching, 0)
		c.notify(e.key)
	}()

	var err error
	for attempt := 0; ; attempt++ {
		var value any
		value, err = c.call(fn)
		if err == nil {
			e.succeedFetch(value, c.clock.Now(), mark)
			c.log.Debug("fetch succeeded", "key", e.key.String(), "attempts", attempt+1)
			return
		}
		e.failAttempt()
		if attempt >= retry {
			break
		}
		delay := c.retryDelay(attempt, err)
		c.log.Debug("fetch failed, retrying", "key", e.key.String(), "attempt", attempt+1, "delay", delay, "error", err)
		c.notify(e.key)
		if !c.sleep(delay) {
			err = ErrClientClosed
			break
		}
	}

	e.fail(err)
	c.log.Warn("fetch failed", "key", e.key.String(), "error", err)
}

// call runs fn and turns a panic into an error.
func (c *Client) call(fn fetchFunc) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error when loading data: %v", r)
		}
	}()
	return fn(c.ctx)
}

// sleep waits for d and reports false if the client was closed meanwhile.
func (c *Client) sleep(d time.Duration) bool {
	if d <= 0 {
		return c.ctx.Err() == nil
	}
	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return true
	case <-c.ctx.Done():
		return false
	}
}
