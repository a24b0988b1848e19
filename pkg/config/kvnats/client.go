/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package kvnats adapts a NATS JetStream key/value bucket to config.KVStore.
package kvnats

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/powerscan/pkg/config"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Client stores configuration documents in a JetStream KV bucket.
type Client struct {
	kv     jetstream.KeyValue
	bucket string
}

var _ config.KVStore = (*Client)(nil)

// New binds to bucket, creating it if it does not exist yet.
func New(ctx context.Context, nc *nats.Conn, bucket string) (*Client, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kvStore, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "powerscan discovery configuration",
		History:     5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bind KV bucket %s: %w", bucket, err)
	}

	return &Client{kv: kvStore, bucket: bucket}, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}

		return nil, false, err
	}

	return entry.Value(), true, nil
}

func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.kv.Put(ctx, key, value)
	return err
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.kv.Delete(ctx, key)
}

// Watch streams every new value of key until ctx is done. Deletes are delivered as nil.
func (c *Client) Watch(ctx context.Context, key string) (<-chan []byte, error) {
	watcher, err := c.kv.Watch(ctx, key, jetstream.UpdatesOnly())
	if err != nil {
		return nil, err
	}

	ch := make(chan []byte, 1)

	go func() {
		defer close(ch)
		defer func() { _ = watcher.Stop() }()

		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-watcher.Updates():
				if !ok {
					return
				}

				if update == nil {
					continue
				}

				var value []byte
				if op := update.Operation(); op != jetstream.KeyValueDelete && op != jetstream.KeyValuePurge {
					value = update.Value()
				}

				select {
				case ch <- value:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}
