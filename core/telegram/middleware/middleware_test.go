package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func newContext(t *testing.T, u tele.Update) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Token: "1:test", Offline: true})
	require.NoError(t, err)
	return b.NewContext(u)
}

func messageFrom(id int64, updateID int) tele.Update {
	return tele.Update{ID: updateID, Message: &tele.Message{
		ID:     updateID,
		Sender: &tele.User{ID: id},
		Chat:   &tele.Chat{ID: id},
		Text:   "https://example.com",
	}}
}

func TestRateLimitDropsBurstsPerUser(t *testing.T) {
	now := time.Unix(1000, 0)
	var limited, served int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return now },
	})
	h := mw(func(tele.Context) error { served++; return nil })

	require.NoError(t, h(newContext(t, messageFrom(1, 1))))
	require.NoError(t, h(newContext(t, messageFrom(1, 2))))
	require.NoError(t, h(newContext(t, messageFrom(2, 3))))
	now = now.Add(2 * time.Second)
	require.NoError(t, h(newContext(t, messageFrom(1, 4))))

	assert.Equal(t, 3, served)
	assert.Equal(t, 1, limited)
}

func TestRateLimitHonoursExclusions(t *testing.T) {
	served := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{KindCallback: {}},
	})
	h := mw(func(tele.Context) error { served++; return nil })

	cb := tele.Update{ID: 1, Callback: &tele.Callback{ID: "c", Sender: &tele.User{ID: 1}}}
	require.NoError(t, h(newContext(t, cb)))
	require.NoError(t, h(newContext(t, cb)))
	assert.Equal(t, 2, served)
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, KindCallback, UpdateKind(tele.Update{Callback: &tele.Callback{}}))
	assert.Equal(t, KindMessage, UpdateKind(tele.Update{Message: &tele.Message{}}))
	assert.Equal(t, KindOther, UpdateKind(tele.Update{}))
}

func TestAdminOnlyRejectsOthers(t *testing.T) {
	var rejected, served int
	mw := AdminOnlyMiddleware(AdminOptions{
		AdminID:  7,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	h := mw(func(tele.Context) error { served++; return nil })

	require.NoError(t, h(newContext(t, messageFrom(7, 1))))
	require.NoError(t, h(newContext(t, messageFrom(8, 2))))
	require.NoError(t, h(newContext(t, tele.Update{ID: 3})))

	assert.Equal(t, 1, served)
	assert.Equal(t, 2, rejected)
}

func TestAllowListPassesAdminAndKnownUsers(t *testing.T) {
	var served []int64
	mw := AllowListMiddleware(AllowListOptions{
		AdminID: 7,
		Allowed: func(id int64) bool { return id == 42 },
	})
	h := mw(func(c tele.Context) error { served = append(served, c.Sender().ID); return nil })

	for i, id := range []int64{7, 42, 13} {
		require.NoError(t, h(newContext(t, messageFrom(id, i+1))))
	}
	require.NoError(t, h(newContext(t, tele.Update{ID: 9})))

	assert.Equal(t, []int64{7, 42}, served)
}

func TestRecoverSwallowsPanics(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	assert.NoError(t, h(newContext(t, messageFrom(1, 1))))

	boom := errors.New("boom")
	h = RecoverMiddleware(func(tele.Context) error { return boom })
	assert.ErrorIs(t, h(newContext(t, messageFrom(1, 2))), boom)
}

func TestLoggerMiddlewareStoresRID(t *testing.T) {
	c := newContext(t, messageFrom(5, 9))
	var rid string
	h := LoggerMiddleware(func(c tele.Context) error {
		rid, _ = c.Get("rid").(string)
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, "9:5:5", rid)
}

func TestReceiptsDeduplicate(t *testing.T) {
	r := &receipts{seen: make(map[int]time.Time)}
	now := time.Unix(0, 0)
	assert.True(t, r.first(1, now))
	assert.False(t, r.first(1, now))
	assert.True(t, r.first(1, now.Add(receiptTTL+time.Second)))
}
