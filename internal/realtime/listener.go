package realtime

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// ConnectFunc opens the dedicated LISTEN connection.
type ConnectFunc func(ctx context.Context) (*pgx.Conn, error)

// Publisher receives decoded row changes.
type Publisher interface {
	Publish(ev Event)
	Resync()
}

// Listener forwards NOTIFY row_changes payloads to a Publisher, reconnecting with backoff.
// Every reconnect is followed by a resync because notifications sent while disconnected are lost.
type Listener struct {
	connect ConnectFunc
	pub     Publisher
	sleep   func(ctx context.Context, d time.Duration) bool
}

func NewListener(connect ConnectFunc, pub Publisher) *Listener {
	return &Listener{connect: connect, pub: pub, sleep: sleepCtx}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	backoff := minBackoff
	connectedBefore := false
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := l.listen(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			zap.L().Warn("realtime listener connect failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !l.sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff
		if connectedBefore {
			zap.L().Info("realtime listener reconnected, requesting resync")
			l.pub.Resync()
		}
		connectedBefore = true

		err = l.consume(ctx, conn)
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = conn.Close(closeCtx)
		cancel()
		if ctx.Err() != nil {
			return nil
		}
		zap.L().Warn("realtime listener disconnected", zap.Error(err))
	}
}

func (l *Listener) listen(ctx context.Context) (*pgx.Conn, error) {
	conn, err := l.connect(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		_ = conn.Close(context.Background())
		return nil, err
	}
	return conn, nil
}

func (l *Listener) consume(ctx context.Context, conn *pgx.Conn) error {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Channel != Channel {
			continue
		}
		ev, err := ParseEvent(n.Payload)
		if err != nil {
			zap.L().Warn("ignoring malformed row change", zap.Error(err))
			continue
		}
		l.pub.Publish(ev)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

