package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Notifier wraps the LISTEN/NOTIFY mechanism in PostgreSQL. The server sends
// a notification whenever a consult is recorded; the SSE stream endpoint
// listens for them.
type Notifier struct {
	DB      *sql.DB
	DSN     string
	Channel string
}

// NewNotifier constructs a Notifier. The DSN is needed because LISTEN
// requires a dedicated connection outside the shared pool.
func NewNotifier(db *sql.DB, dsn, channel string) *Notifier {
	return &Notifier{DB: db, DSN: dsn, Channel: channel}
}

// Notify publishes a consult ID on the channel.
func (n *Notifier) Notify(ctx context.Context, consultID string) error {
	_, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, consultID)
	return err
}

// Listen yields consult IDs as they are published. The returned channel is
// closed when ctx is cancelled.
func (n *Notifier) Listen(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(n.DSN, time.Second, time.Minute, nil)
	if err := listener.Listen(n.Channel); err != nil {
		_ = listener.Close()
		return nil, err
	}
	ch := make(chan string)
	go func() {
		defer close(ch)
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-listener.Notify:
				if note == nil {
					// nil signals a driver reconnect; nothing to deliver
					continue
				}
				select {
				case ch <- note.Extra:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
