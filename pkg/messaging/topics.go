package messaging

// In-process bus topics.
const (
	// TopicPurchaseConfirmed carries events.PurchaseConfirmed after each
	// ledger insert.
	TopicPurchaseConfirmed = "purchase.confirmed"
	// TopicAvatarUpdated carries events.AvatarUpdated when a user changes
	// their avatar preference.
	TopicAvatarUpdated = "prefs.avatar_updated"
	// TopicNotification carries events.Notification for user-facing,
	// non-blocking notifications.
	TopicNotification = "ui.notification"
	// TopicNavigatePrefix + view name is a payload-free navigation request
	// consumed by the view selector.
	TopicNavigatePrefix = "view.navigate."
)

// NATS subjects for events mirrored out of process by the relay.
const (
	SubjectPurchaseConfirmed = "vigil.purchases.confirmed"
	SubjectAvatarUpdated     = "vigil.prefs.avatar_updated"
)
