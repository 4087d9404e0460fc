package storage

// Fixed storage keys, one per persisted entity.
//
// The names carry over from the AsyncStorage keys the AirSafe client apps
// already use, so a future sync path can map them one-to-one. The last four
// are reserved for client-side state; the core only defines them.
const (
	// KeySensorData holds the serialised sensor snapshot.
	KeySensorData = "airsafe_data"

	// KeyAlerts holds the serialised alert history (newest first, capped).
	KeyAlerts = "airsafe_alerts"

	// KeyAlertSettings holds the serialised alert threshold settings.
	KeyAlertSettings = "airsafe_alert_settings"

	// KeyEvents holds the serialised event log (newest first, capped).
	KeyEvents = "airsafe_events"

	// KeyNotifications holds the last-dispatch times per notification category.
	KeyNotifications = "airsafe_notifications"

	// KeyUserProfile is reserved for the client apps' user profile.
	KeyUserProfile = "airsafe_user_profile"

	// KeyAppSettings is reserved for the client apps' app-level settings.
	KeyAppSettings = "airsafe_app_settings"

	// KeyNavState is reserved for the client apps' navigation state.
	KeyNavState = "airsafe_nav_state"

	// KeyAuthFlag is reserved for the client apps' unlock/auth flag.
	KeyAuthFlag = "airsafe_auth"
)
