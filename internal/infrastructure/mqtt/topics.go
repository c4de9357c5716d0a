package mqtt

import "strings"

// DefaultTopicPrefix is used when no topic prefix is configured.
const DefaultTopicPrefix = "privatepub"

// topics builds the MQTT topics used by privatepub:
//
//	{prefix}/events/{name}         lifecycle events mirrored by the relay
//	{prefix}/broker/events/{name}  lifecycle events reported by the broker
//	{prefix}/system/status         retained online/offline status
type topics struct {
	prefix string
}

func newTopics(prefix string) topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return topics{prefix: strings.TrimSuffix(prefix, "/")}
}

func (t topics) event(name string) string {
	return t.prefix + "/events/" + name
}

func (t topics) brokerEvent(name string) string {
	return t.prefix + "/broker/events/" + name
}

func (t topics) allBrokerEvents() string {
	return t.brokerEvent("+")
}

func (t topics) systemStatus() string {
	return t.prefix + "/system/status"
}

// eventName returns the last topic level, which names the event.
func eventName(topic string) string {
	return topic[strings.LastIndexByte(topic, '/')+1:]
}
