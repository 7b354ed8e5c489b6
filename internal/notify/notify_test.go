package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"decisionjar/internal/jobs"
	"decisionjar/internal/notify"
	"decisionjar/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPusher struct {
	got []notify.Message
	err error
}

func (p *recordingPusher) Push(_ context.Context, msg notify.Message) error {
	p.got = append(p.got, msg)
	return p.err
}

func TestOutboxEnqueuesAndWorkerDelivers(t *testing.T) {
	ctx := context.Background()
	repo := &jobs.Repo{DB: testutil.NewDB(t)}
	outbox := &notify.Outbox{Jobs: repo}
	pusher := &recordingPusher{}
	w := &jobs.Worker{
		ID:       "w",
		Repo:     repo,
		Handlers: map[string]jobs.Handler{jobs.TypePushDispatch: &notify.PushHandler{Pusher: pusher}},
	}

	for _, uid := range []uint64{2, 3} {
		require.NoError(t, outbox.Notify(ctx, notify.Message{
			RecipientID: uid,
			Title:       "The jar has spoken",
			Body:        "Picnic in the park",
			URL:         "https://jar.example.com/jar",
		}))
	}

	// let run_at (== now at enqueue) fall strictly behind the claim time
	time.Sleep(10 * time.Millisecond)
	for {
		handled, err := w.RunOnce(ctx)
		require.NoError(t, err)
		if !handled {
			break
		}
	}

	require.Len(t, pusher.got, 2)
	assert.ElementsMatch(t, []uint64{2, 3}, []uint64{pusher.got[0].RecipientID, pusher.got[1].RecipientID})
	assert.Equal(t, "Picnic in the park", pusher.got[0].Body)
}

func TestOutboxRejectsMissingRecipient(t *testing.T) {
	outbox := &notify.Outbox{Jobs: &jobs.Repo{DB: testutil.NewDB(t)}}
	err := outbox.Notify(context.Background(), notify.Message{Title: "x"})
	assert.ErrorIs(t, err, notify.ErrNoRecipient)
}

func TestPushHandlerBadPayloadIsPermanent(t *testing.T) {
	h := &notify.PushHandler{Pusher: &recordingPusher{}}
	err := h.Handle(context.Background(), &jobs.Job{Payload: []byte("not json")})
	require.Error(t, err)

	pusher := &recordingPusher{err: errors.New("boom")}
	h = &notify.PushHandler{Pusher: pusher}
	err = h.Handle(context.Background(), &jobs.Job{UserID: 5, Payload: []byte(`{"title":"t"}`)})
	assert.EqualError(t, err, "boom")
	require.Len(t, pusher.got, 1)
	assert.Equal(t, uint64(5), pusher.got[0].RecipientID, "falls back to the job's user")
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, "push:12", notify.ChannelFor("push", 12))
}

func TestNewRedisPusherRequiresAddr(t *testing.T) {
	_, err := notify.NewRedisPusher("", "push")
	assert.Error(t, err)
}
