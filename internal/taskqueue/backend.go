// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/onair/internal/config"
)

// StreamName is the JetStream stream holding every task topic.
const StreamName = "TASKS"

// backend abstracts the transport behind the queue.
type backend struct {
	publisher message.Publisher

	// subscriber returns the subscriber for one queue.
	subscriber func(queue string) (message.Subscriber, error)

	// prepare adjusts outgoing messages, e.g. for broker-side dedup.
	prepare func(*message.Message)

	// durable reports whether messages published before a subscriber
	// exists are kept.
	durable bool

	close func() error
}

func newMemoryBackend(logger watermill.LoggerAdapter) *backend {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)

	return &backend{
		publisher: pubSub,
		subscriber: func(string) (message.Subscriber, error) {
			return pubSub, nil
		},
		close: pubSub.Close,
	}
}

func natsOptions(logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("onair-tasks"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

func newNATSBackend(cfg config.QueueConfig, url string, logger watermill.LoggerAdapter) (*backend, error) {
	opts := natsOptions(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ensureStream(ctx, url, opts); err != nil {
		return nil, err
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	var (
		mu   sync.Mutex
		subs = make(map[string]message.Subscriber)
	)
	subscriber := func(queue string) (message.Subscriber, error) {
		mu.Lock()
		defer mu.Unlock()
		if sub, ok := subs[queue]; ok {
			return sub, nil
		}
		// One subscriber per queue keeps durable consumer names distinct.
		sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
			URL:              url,
			QueueGroupPrefix: cfg.QueueGroup,
			SubscribersCount: max(cfg.SubscribersCount, 1),
			AckWaitTimeout:   cfg.HandlerTimeout + 30*time.Second,
			CloseTimeout:     cfg.CloseTimeout,
			NatsOptions:      opts,
			Unmarshaler:      &wmNats.NATSMarshaler{},
			JetStream: wmNats.JetStreamConfig{
				AutoProvision: false,
				AckAsync:      false,
				DurablePrefix: cfg.DurablePrefix + "-" + queue,
				SubscribeOptions: []natsgo.SubOpt{
					natsgo.BindStream(StreamName),
					natsgo.DeliverAll(),
					natsgo.AckExplicit(),
				},
			},
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create watermill subscriber for %s: %w", queue, err)
		}
		subs[queue] = sub
		return sub, nil
	}

	return &backend{
		publisher:  pub,
		subscriber: subscriber,
		prepare: func(msg *message.Message) {
			if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
				msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
			}
		},
		durable: true,
		close: func() error {
			mu.Lock()
			defer mu.Unlock()
			var errs []error
			for _, sub := range subs {
				errs = append(errs, sub.Close())
			}
			errs = append(errs, pub.Close())
			return errors.Join(errs...)
		},
	}, nil
}

// ensureStream creates or updates the task stream covering "tasks.>".
func ensureStream(ctx context.Context, url string, opts []natsgo.Option) error {
	nc, err := natsgo.Connect(url, opts...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{TopicPrefix + ">"},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     72 * time.Hour,
		Duplicates: 2 * time.Minute,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}

	_, err = js.Stream(ctx, StreamName)
	switch {
	case err == nil:
		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream %s: %w", StreamName, err)
		}
	case errors.Is(err, jetstream.ErrStreamNotFound):
		if _, err := js.CreateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("create stream %s: %w", StreamName, err)
		}
	default:
		return fmt.Errorf("check stream %s: %w", StreamName, err)
	}
	return nil
}
