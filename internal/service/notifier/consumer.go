package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/walletledger/internal/logger"
	"github.com/nkiryanov/walletledger/internal/models"
)

const (
	defaultGroup           = "walletd"
	defaultBlock           = time.Second      // How long one read waits for new entries
	defaultBatchSize       = 10               // Entries fetched per read
	defaultMinIdle         = time.Minute      // Pending entry older than this is handled again
	defaultReclaimInterval = 30 * time.Second // How often pending entries are checked
	retryInterval          = 2 * time.Second  // Pause after redis error
	ackTimeout             = 5 * time.Second
)

// Handler of consumed event. Entry is acknowledged only if handler returns nil
// Failed entry stays pending and is handled again once it is idle for ConsumerOpts.MinIdle
type Handler func(ctx context.Context, event models.TransactionEvent) error

// Consumer reads transaction events from redis streams within consumer group
type Consumer struct {
	client  redis.Cmdable
	streams []string
	group   string
	name    string

	block           time.Duration
	batchSize       int64
	minIdle         time.Duration
	reclaimInterval time.Duration

	handle Handler
	logger logger.Logger
}

type ConsumerOpts struct {
	Group   string
	Name    string
	Handler Handler // Log events if not set

	MinIdle         time.Duration // Default is 1 minute
	ReclaimInterval time.Duration // Default is 30 seconds
}

func NewConsumer(client redis.Cmdable, streams []string, logger logger.Logger, opts ConsumerOpts) *Consumer {
	c := &Consumer{
		client:          client,
		streams:         streams,
		group:           opts.Group,
		name:            opts.Name,
		block:           defaultBlock,
		batchSize:       defaultBatchSize,
		minIdle:         opts.MinIdle,
		reclaimInterval: opts.ReclaimInterval,
		handle:          opts.Handler,
		logger:          logger,
	}

	if c.group == "" {
		c.group = defaultGroup
	}
	if c.name == "" {
		c.name = c.group + "-consumer"
	}
	if c.handle == nil {
		c.handle = c.logEvent
	}
	if c.minIdle <= 0 {
		c.minIdle = defaultMinIdle
	}
	if c.reclaimInterval <= 0 {
		c.reclaimInterval = defaultReclaimInterval
	}

	return c
}

// Create consumer groups if they are absent. Streams are created too
func (c *Consumer) Setup(ctx context.Context) error {
	for _, stream := range c.streams {
		err := c.client.XGroupCreateMkStream(ctx, stream, c.group, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("can't create consumer group for stream %s. Err: %w", stream, err)
		}
	}
	return nil
}

// Consume events until ctx is done
// Returned channel is closed when consumer stopped
func (c *Consumer) Consume(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	go func() {
		defer close(idleStopped)

		nextReclaim := time.Now().Add(c.reclaimInterval)

		for {
			select {
			case <-ctx.Done():
				c.logger.Debug("Consumer stopped by context")
				return
			default:
			}

			if time.Now().After(nextReclaim) {
				nextReclaim = time.Now().Add(c.reclaimInterval)

				err := c.reclaim(ctx)
				if err != nil && ctx.Err() == nil {
					c.logger.Error("Failed to reclaim pending events", "error", err)
				}
			}

			err := c.consumeBatch(ctx)
			if err != nil && ctx.Err() == nil {
				c.logger.Error("Failed to read events", "error", err)

				select {
				case <-ctx.Done():
				case <-time.After(retryInterval):
				}
			}
		}
	}()

	return idleStopped
}

func (c *Consumer) consumeBatch(ctx context.Context) error {
	args := make([]string, 0, 2*len(c.streams))
	args = append(args, c.streams...)
	for range c.streams {
		args = append(args, ">")
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  args,
		Count:    c.batchSize,
		Block:    c.block,
	}).Result()

	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return err
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			c.process(ctx, stream.Stream, msg)
		}
	}

	return nil
}

// Claim entries pending longer than minIdle, whichever consumer they were delivered to, and handle them again
func (c *Consumer) reclaim(ctx context.Context) error {
	for _, stream := range c.streams {
		start := "0-0"

		for ctx.Err() == nil {
			messages, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   stream,
				Group:    c.group,
				Consumer: c.name,
				MinIdle:  c.minIdle,
				Start:    start,
				Count:    c.batchSize,
			}).Result()
			if err != nil {
				return fmt.Errorf("can't claim pending events of stream %s. Err: %w", stream, err)
			}

			for _, msg := range messages {
				c.logger.Warn("Retry pending event", "stream", stream, "message_id", msg.ID)
				c.process(ctx, stream, msg)
			}

			// Scan of the pending list is complete
			if next == "0-0" {
				break
			}
			start = next
		}
	}

	return nil
}

func (c *Consumer) process(ctx context.Context, stream string, msg redis.XMessage) {
	event, err := decodeEvent(msg)
	if err != nil {
		// Broken entry would be redelivered forever, so it is acknowledged and skipped
		c.logger.Error("Skip malformed event", "error", err, "stream", stream, "message_id", msg.ID)
		c.ack(ctx, stream, msg.ID)
		return
	}

	err = c.handle(ctx, event)
	if err != nil {
		c.logger.Error("Failed to handle event", "error", err, "transaction_id", event.TransactionID)
		return
	}

	c.ack(ctx, stream, msg.ID)
}

// Ack survives consumer shutdown, so a handled entry is not handled twice
func (c *Consumer) ack(ctx context.Context, stream string, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
	defer cancel()

	err := c.client.XAck(ctx, stream, c.group, id).Err()
	if err != nil {
		c.logger.Error("Failed to ack event", "error", err, "stream", stream, "message_id", id)
	}
}

func (c *Consumer) logEvent(_ context.Context, event models.TransactionEvent) error {
	c.logger.Info("Consumed transaction event",
		"transaction_id", event.TransactionID,
		"user_id", event.UserID,
		"type", event.Type,
		"amount", event.Amount.String(),
	)
	return nil
}

func decodeEvent(msg redis.XMessage) (models.TransactionEvent, error) {
	var event models.TransactionEvent

	raw, ok := msg.Values[FieldPayload]
	if !ok {
		return event, errors.New("payload field is missing")
	}

	payload, ok := raw.(string)
	if !ok {
		return event, fmt.Errorf("unexpected payload type %T", raw)
	}

	err := json.Unmarshal([]byte(payload), &event)
	return event, err
}
