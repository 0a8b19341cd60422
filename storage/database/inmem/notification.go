package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shida/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, notif notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	notif.ID = uuid.New().String()
	repo.db.notifications[notif.ID] = &notif
	return notif, nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, userID string, filter *notification.QueryFilter) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	notifs := make([]notification.Notification, 0)
	for _, notif := range repo.db.notifications {
		if notif.UserID != userID {
			continue
		}
		if filter != nil {
			if filter.IsRead != nil && notif.IsRead != *filter.IsRead {
				continue
			}
			if filter.Type != "" && notif.Type != filter.Type {
				continue
			}
		}
		notifs = append(notifs, *notif)
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs, nil
}

func (repo *notificationRepository) GetNotification(_ context.Context, id string) (notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if notif, ok := repo.db.notifications[id]; ok {
		return *notif, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) MarkNotificationRead(_ context.Context, id string) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	notif, ok := repo.db.notifications[id]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	notif.IsRead = true
	return *notif, nil
}

func (repo *notificationRepository) MarkAllNotificationsRead(_ context.Context, userID string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, notif := range repo.db.notifications {
		if notif.UserID == userID && !notif.IsRead {
			notif.IsRead = true
			n++
		}
	}
	return n, nil
}

func (repo *notificationRepository) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, notif := range repo.db.notifications {
		if notif.UserID == userID && !notif.IsRead {
			n++
		}
	}
	return n, nil
}
