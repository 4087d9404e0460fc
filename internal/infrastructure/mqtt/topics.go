package mqtt

import (
	"strings"

	"github.com/airsafe/airsafe-core/internal/sensor"
)

// Topics builds the topic names for one device namespace.
//
// The firmware publishes each sensor key on its own topic under the
// namespace, for example d1ego/airsafe/pm25. The manager subscribes to
// one topic per known key plus a wildcard catch-all so new firmware keys
// still reach the snapshot.
type Topics struct {
	// Namespace is the topic prefix, for example "d1ego/airsafe".
	Namespace string
}

// Sensor returns the topic for a single sensor key.
//
// Example: d1ego/airsafe/pm25
func (t Topics) Sensor(key string) string {
	return t.Namespace + "/" + key
}

// All returns the wildcard subscription covering the whole namespace.
//
// Example: d1ego/airsafe/#
func (t Topics) All() string {
	return t.Namespace + "/#"
}

// Notifications returns the topic notifications are published on.
//
// Example: d1ego/airsafe/notifications
func (t Topics) Notifications() string {
	return t.Namespace + "/notifications"
}

// SubscriptionList returns every topic the manager subscribes to on
// connect: one per known sensor key plus the wildcard.
func (t Topics) SubscriptionList() []string {
	keys := sensor.Keys()
	out := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		out = append(out, t.Sensor(key))
	}
	return append(out, t.All())
}

// Owns reports whether a topic belongs to this namespace.
func (t Topics) Owns(topic string) bool {
	return strings.HasPrefix(topic, t.Namespace+"/")
}
