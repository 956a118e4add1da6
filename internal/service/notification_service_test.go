package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civic-kit/municipal-services/internal/domain"
)

func newNotificationService(feedLimit int) (*NotificationService, *memDB) {
	store, db, tx := newTestStore()
	svc := NewNotificationService(NotificationDependencies{
		Store:     store,
		Tx:        tx,
		FeedLimit: feedLimit,
	})
	return svc, db
}

func seedNotification(db *memDB, recipientID, title string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, now := db.nextID("notif")
	db.notifications = append(db.notifications, domain.Notification{
		ID:          id,
		RecipientID: recipientID,
		Type:        domain.NotificationGeneral,
		Title:       title,
		CreatedAt:   now,
	})
}

func TestFeedMarksEntriesReadOnFetch(t *testing.T) {
	svc, db := newNotificationService(20)
	user := seedUser(db, domain.RoleCitizen)
	seedNotification(db, user.ID, "first")
	seedNotification(db, user.ID, "second")

	unread, err := svc.UnreadCount(context.Background(), user)
	require.NoError(t, err)
	require.EqualValues(t, 2, unread)

	feed, err := svc.Feed(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	// newest first, already flagged read in the response
	require.Equal(t, "second", feed[0].Title)
	for _, entry := range feed {
		require.True(t, entry.IsRead)
	}

	unread, err = svc.UnreadCount(context.Background(), user)
	require.NoError(t, err)
	require.EqualValues(t, 0, unread)
}

func TestFeedIsScopedToRecipient(t *testing.T) {
	svc, db := newNotificationService(20)
	alice := seedUser(db, domain.RoleCitizen)
	bob := seedUser(db, domain.RoleCitizen)
	seedNotification(db, alice.ID, "for alice")
	seedNotification(db, bob.ID, "for bob")

	feed, err := svc.Feed(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, "for alice", feed[0].Title)

	// fetching alice's feed must not touch bob's unread flag
	unread, err := svc.UnreadCount(context.Background(), bob)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)
}

func TestFeedHonorsLimit(t *testing.T) {
	svc, db := newNotificationService(2)
	user := seedUser(db, domain.RoleCitizen)
	for _, title := range []string{"a", "b", "c"} {
		seedNotification(db, user.ID, title)
	}

	feed, err := svc.Feed(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	require.Equal(t, "c", feed[0].Title)

	// the entry beyond the page stays unread
	unread, err := svc.UnreadCount(context.Background(), user)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)
}
