package bus

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// MaxPayload is the NOTIFY payload limit of a default Postgres build, less
// some headroom.
const MaxPayload = 7900

var channelPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PGTransport rides on Postgres LISTEN/NOTIFY. Every server listens on the
// same channel; delivery is at-most-once and only while listening.
type PGTransport struct {
	pool    *pgxpool.Pool
	channel string

	done      chan struct{}
	closeOnce sync.Once
}

var _ Transport = (*PGTransport)(nil)

func NewPG(pool *pgxpool.Pool, channel string) (*PGTransport, error) {
	if !channelPattern.MatchString(channel) {
		return nil, fmt.Errorf("invalid bus channel %q", channel)
	}
	return &PGTransport{pool: pool, channel: channel, done: make(chan struct{})}, nil
}

func (t *PGTransport) Publish(ctx context.Context, env Envelope) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	b, err := Encode(env)
	if err != nil {
		return err
	}
	if len(b) > MaxPayload {
		return fmt.Errorf("%w: %s is %d bytes", ErrPayloadTooLarge, env.Kind, len(b))
	}
	_, err = t.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, t.channel, string(b))
	return err
}

// Receive holds one pooled connection in LISTEN mode. A dropped connection is
// re-established with exponential backoff; notifications sent meanwhile are
// lost.
func (t *PGTransport) Receive(ctx context.Context, handle func(Envelope)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-t.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := retryListen(ctx, backoff.NewExponentialBackOff(),
		func(ctx context.Context, listening func()) error {
			return t.listen(ctx, listening, handle)
		},
		func(err error, next time.Duration) {
			log.Warn().Err(err).Str("channel", t.channel).Dur("retry_in", next).Msg("bus listen failed")
		},
	)
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	return err
}

// retryListen runs session until ctx ends. The backoff starts over each time
// a session reports it is listening.
func retryListen(ctx context.Context, bo *backoff.ExponentialBackOff, session func(ctx context.Context, listening func()) error, notify backoff.Notify) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := session(ctx, bo.Reset)
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	return err
}

func (t *PGTransport) listen(ctx context.Context, listening func(), handle func(Envelope)) error {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{t.channel}.Sanitize()); err != nil {
		return err
	}
	defer func() {
		if conn.Conn().IsClosed() {
			return
		}
		unlistenCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = conn.Exec(unlistenCtx, "UNLISTEN *")
	}()
	listening()
	log.Info().Str("channel", t.channel).Msg("bus listening")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		env, err := Decode([]byte(n.Payload))
		if err != nil {
			log.Warn().Err(err).Str("channel", t.channel).Msg("bus drop undecodable envelope")
			continue
		}
		handle(env)
	}
}

func (t *PGTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

// IsClosed reports whether err is the terminal error of a closed or
// cancelled receive loop.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled)
}
