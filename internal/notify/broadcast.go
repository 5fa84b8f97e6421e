package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fabworks/fabshop-backend/pkg/db/models"
	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"github.com/fabworks/fabshop-backend/pkg/logger"
	"github.com/fabworks/fabshop-backend/pkg/metrics"
)

const (
	defaultMessageDelay   = 100 * time.Millisecond
	defaultRateLimitPause = time.Second
)

type usersRepo interface {
	All(ctx context.Context) ([]models.User, error)
}

// BroadcasterParams wires the broadcast fan-out dependencies.
type BroadcasterParams struct {
	Logger         *logger.Logger
	Sender         Sender
	Users          usersRepo
	Metrics        *metrics.DeliveryMetrics
	MessageDelay   time.Duration
	RateLimitPause time.Duration
}

// Broadcaster serializes an announcement to every registered user with a
// small inter-message delay so the transport rate limit holds.
type Broadcaster struct {
	logg           *logger.Logger
	sender         Sender
	users          usersRepo
	metrics        *metrics.DeliveryMetrics
	messageDelay   time.Duration
	rateLimitPause time.Duration
}

// NewBroadcaster builds the broadcast fan-out.
func NewBroadcaster(params BroadcasterParams) (*Broadcaster, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("sender required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	delay := params.MessageDelay
	if delay <= 0 {
		delay = defaultMessageDelay
	}
	pause := params.RateLimitPause
	if pause <= 0 {
		pause = defaultRateLimitPause
	}
	return &Broadcaster{
		logg:           params.Logger,
		sender:         params.Sender,
		users:          params.Users,
		metrics:        params.Metrics,
		messageDelay:   delay,
		rateLimitPause: pause,
	}, nil
}

// Tally reports the broadcast outcome.
type Tally struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Broadcast sends the text to every registered user. Per-recipient failures
// are logged and skipped; a rate-limit signal earns the recipient one pause
// and retry before giving up on them.
func (b *Broadcaster) Broadcast(ctx context.Context, text string) (*Tally, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "broadcast text is required")
	}

	recipients, err := b.users.All(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list broadcast recipients")
	}

	tally := &Tally{}
	for i, user := range recipients {
		if i > 0 {
			if err := sleepCtx(ctx, b.messageDelay); err != nil {
				return tally, err
			}
		}
		if err := b.sendOne(ctx, user.ID, text); err != nil {
			if ctx.Err() != nil {
				return tally, ctx.Err()
			}
			tally.Failed++
			b.metrics.IncFailed("broadcast")
			logCtx := b.logg.WithUserID(ctx, user.ID)
			b.logg.Warn(b.logg.WithField(logCtx, "send_error", err.Error()), "broadcast recipient skipped")
			continue
		}
		tally.Sent++
		b.metrics.IncSent("broadcast")
	}

	logCtx := b.logg.WithFields(ctx, map[string]any{
		"recipients": len(recipients),
		"sent":       tally.Sent,
		"failed":     tally.Failed,
	})
	b.logg.Info(logCtx, "broadcast complete")
	return tally, nil
}

func (b *Broadcaster) sendOne(ctx context.Context, userID int64, text string) error {
	msg := Message{Text: text}
	err := b.sender.Send(ctx, userID, msg)
	if err == nil {
		return nil
	}
	if !isRateLimited(err) {
		return err
	}

	if sleepErr := sleepCtx(ctx, b.rateLimitPause); sleepErr != nil {
		return sleepErr
	}
	return b.sender.Send(ctx, userID, msg)
}

func isRateLimited(err error) bool {
	appErr := pkgerrors.As(err)
	return appErr != nil && appErr.Code() == pkgerrors.CodeRateLimit
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
