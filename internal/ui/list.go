package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/wavecast/wavecast/internal/models"
)

var (
	_ list.Item = notificationItem{}
	_ list.Item = subscriptionItem{}
)

// notificationItem wraps [models.Notification] to implement [list.Item].
type notificationItem struct {
	notification models.Notification
}

func (i notificationItem) FilterValue() string { return i.notification.Content }
func (i notificationItem) Title() string {
	if i.notification.IsRead {
		return i.notification.Content
	}
	return fmt.Sprintf("● %s", i.notification.Content)
}
func (i notificationItem) Description() string {
	desc := string(i.notification.Kind)
	if !i.notification.CreatedAt.IsZero() {
		desc = fmt.Sprintf("%s • %s", desc, i.notification.CreatedAt.Format("Jan 2 15:04"))
	}
	return desc
}

// subscriptionItem wraps [models.Subscription] to implement [list.Item].
type subscriptionItem struct {
	subscription models.Subscription
}

func (i subscriptionItem) FilterValue() string { return i.subscription.StreamerName }
func (i subscriptionItem) Title() string       { return i.subscription.StreamerName }
func (i subscriptionItem) Description() string {
	if i.subscription.IsMuted {
		return "muted"
	}
	return fmt.Sprintf("subscribed %s", i.subscription.SubscribedAt.Format("Jan 2 2006"))
}
