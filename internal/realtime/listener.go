package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

// Listener receives change notifications published by the PostgreSQL store.
type Listener struct {
	connString string
	channel    string
	retryDelay time.Duration
}

func NewListener(connString string) *Listener {
	return &Listener{
		connString: connString,
		channel:    transaction.ChangeChannel,
		retryDelay: 2 * time.Second,
	}
}

// Run listens until ctx is done, passing every decoded change to publish.
// Lost connections are re-established; notifications sent while disconnected are missed,
// so consumers that need a complete picture should reload after a reconnect.
func (l *Listener) Run(ctx context.Context, publish func(transaction.Change)) error {
	for {
		err := l.listen(ctx, publish)
		if ctx.Err() != nil {
			return nil
		}

		slog.Error("change listener disconnected", "error", err, "retry_in", l.retryDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context, publish func(transaction.Change)) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("connecting listener: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listening on %s: %w", l.channel, err)
	}

	slog.Info("listening for changes", "channel", l.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return fmt.Errorf("waiting for notification: %w", err)
		}

		ch, err := Decode(n.Payload)
		if err != nil {
			slog.Warn("skipping malformed change", "error", err)
			continue
		}

		publish(ch)
	}
}

// Decode parses a notification payload.
func Decode(payload string) (transaction.Change, error) {
	var ch transaction.Change
	if err := json.Unmarshal([]byte(payload), &ch); err != nil {
		return transaction.Change{}, fmt.Errorf("decoding change: %w", err)
	}

	switch ch.Op {
	case transaction.OpInsert, transaction.OpUpdate:
		if ch.Transaction == nil {
			return transaction.Change{}, fmt.Errorf("%s change for %s without transaction", ch.Op, ch.ID)
		}
	case transaction.OpDelete:
	default:
		return transaction.Change{}, fmt.Errorf("unknown change op %q", ch.Op)
	}

	return ch, nil
}
