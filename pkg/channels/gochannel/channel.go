// Package gochannel provides the in-process channel for the audit event
// stream, used in single-binary runs and tests where no broker exists.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// auditBuffer bounds the in-flight audit events before publishers block. A run
// emits a handful of events per node, so this is generous headroom.
const auditBuffer = 1000

// CreateChannel creates the in-process audit publisher and subscriber. Events
// are not persisted: a sink must be subscribed before the workflow starts or
// earlier events are lost, which is acceptable for local runs.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            auditBuffer,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	// GoChannel implements both Publisher and Subscriber on the same instance.
	return pubSub, pubSub, nil
}

// CreateTestChannel creates a persistent, blocking-publish channel so tests
// can subscribe after emitting and still observe every audit event.
func CreateTestChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            10,
			Persistent:                     true,
			BlockPublishUntilSubscriberAck: true,
		},
		logger,
	)

	return pubSub, pubSub, nil
}
