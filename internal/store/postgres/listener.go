package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"boardsync/internal/store"
)

// listener holds one dedicated connection on LISTEN and fans incoming
// collection-change notifications out to live subscriptions by
// re-running each subscribed query.
type listener struct {
	pool    *pgxpool.Pool
	adapter *Adapter

	mu   sync.Mutex
	subs []*subscription

	cancel context.CancelFunc
	done   chan struct{}
}

func newListener(ctx context.Context, pool *pgxpool.Pool, adapter *Adapter) (*listener, error) {
	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l := &listener{
		pool:    pool,
		adapter: adapter,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	conn, err := pool.Acquire(lctx)
	if err != nil {
		cancel()
		return nil, classify(fmt.Errorf("acquire listen connection: %w", err), "acquire listen connection")
	}
	if _, err := conn.Exec(lctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		cancel()
		return nil, classify(fmt.Errorf("listen: %w", err), "listen")
	}

	go func() {
		defer close(l.done)
		defer conn.Release()
		for {
			notification, err := conn.Conn().WaitForNotification(lctx)
			if err != nil {
				if lctx.Err() != nil {
					return
				}
				slog.Warn("notification wait failed", "error", err)
				l.failAll(classify(err, "notification stream"))
				return
			}
			l.dispatch(lctx, notification.Payload)
		}
	}()

	return l, nil
}

func (l *listener) close() {
	l.cancel()
	<-l.done
	l.mu.Lock()
	subs := l.subs
	l.subs = nil
	l.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

func (l *listener) dispatch(ctx context.Context, collection string) {
	l.mu.Lock()
	live := l.subs[:0]
	var pending []*subscription
	for _, sub := range l.subs {
		select {
		case <-sub.closed:
			continue
		default:
		}
		live = append(live, sub)
		if sub.query.Collection == collection {
			pending = append(pending, sub)
		}
	}
	l.subs = live
	l.mu.Unlock()

	for _, sub := range pending {
		docs, err := l.adapter.GetDocs(ctx, sub.query)
		sub.push(store.Snapshot{Docs: docs, Err: err})
	}
}

func (l *listener) failAll(err error) {
	l.mu.Lock()
	subs := l.subs
	l.subs = nil
	l.mu.Unlock()
	for _, sub := range subs {
		sub.push(store.Snapshot{Err: err})
		sub.Close()
	}
}

// Subscribe opens a live subscription: an initial consistent snapshot
// followed by a fresh snapshot after each committed change to the
// subscribed collection.
func (a *Adapter) Subscribe(ctx context.Context, q store.Query) (store.Subscription, error) {
	docs, err := a.GetDocs(ctx, q)
	if err != nil {
		return nil, err
	}

	sub := &subscription{
		query:  q,
		ch:     make(chan store.Snapshot, 1),
		closed: make(chan struct{}),
	}
	a.listener.mu.Lock()
	a.listener.subs = append(a.listener.subs, sub)
	a.listener.mu.Unlock()

	sub.push(store.Snapshot{Docs: docs})

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closed:
		}
	}()
	return sub, nil
}

type subscription struct {
	query  store.Query
	ch     chan store.Snapshot
	closed chan struct{}
	once   sync.Once
	mu     sync.Mutex
}

func (s *subscription) Snapshots() <-chan store.Snapshot { return s.ch }

func (s *subscription) Close() {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}

// push conflates: an undelivered snapshot is replaced by the newer one.
func (s *subscription) push(snap store.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.closed:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}
