package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelsh/crossarb/internal/domain"
)

type stubSender struct {
	name   string
	err    error
	titles []string
}

func (s *stubSender) Send(_ context.Context, title, _ string) error {
	s.titles = append(s.titles, title)
	return s.err
}

func (s *stubSender) Name() string { return s.name }

func TestNotifySubscriptionFilter(t *testing.T) {
	sender := &stubSender{name: "console"}
	n := NewNotifier([]Sender{sender}, []string{"deal", domain.AlertOrderTimeout}, slog.Default())

	require.NoError(t, n.Notify(context.Background(), "deal", "deal BTC", "body"))
	require.NoError(t, n.Notify(context.Background(), "hedge", "hedge BTC", "body"))
	require.NoError(t, n.Notify(context.Background(), domain.AlertOrderTimeout, "timeout", "body"))

	assert.Equal(t, []string{"deal BTC", "timeout"}, sender.titles)
}

func TestNotifyEmptySubscriptionDeliversAll(t *testing.T) {
	sender := &stubSender{name: "console"}
	n := NewNotifier([]Sender{sender}, nil, slog.Default())

	require.NoError(t, n.Notify(context.Background(), "hedge", "hedge BTC", "body"))
	assert.Len(t, sender.titles, 1)
}

func TestNotifyFailedSenderDoesNotBlockOthers(t *testing.T) {
	boom := errors.New("chat unreachable")
	bad := &stubSender{name: "telegram", err: boom}
	good := &stubSender{name: "console"}
	n := NewNotifier([]Sender{bad, good}, nil, slog.Default())

	err := n.Notify(context.Background(), "deal", "deal BTC", "body")
	require.ErrorIs(t, err, boom)
	assert.Len(t, good.titles, 1, "second sender still receives the event")
}

func TestReporterRoutesAlertsByEventName(t *testing.T) {
	sender := &stubSender{name: "console"}
	n := NewNotifier([]Sender{sender}, []string{domain.AlertOrderMismatch}, slog.Default())
	r := NewReporter(n)

	// The deal stream is not subscribed, the mismatch alert is.
	require.NoError(t, r.PublishDeal(context.Background(), domain.DealReport{Coin: "BTC"}))
	require.NoError(t, r.PublishAlert(context.Background(), domain.Alert{
		Event: domain.AlertOrderMismatch,
		Title: "amend returned unexpected order id",
	}))

	require.Len(t, sender.titles, 1)
	assert.Contains(t, sender.titles[0], domain.AlertOrderMismatch)
}
