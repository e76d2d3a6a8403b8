package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis Lua script to drop expired hold keys from the per-performance set and
// return the seat IDs still held.
var filterLiveHolds = redis.NewScript(`
	local setKey = KEYS[1]
	local performanceId = ARGV[1]
	local cursor = "0"
	local batchSize = 100
	local expiredSeats = {}
	local liveSeats = {}

	repeat
		local result = redis.call("SSCAN", setKey, cursor, "COUNT", batchSize)
		cursor = result[1]
		local seatIds = result[2]

		for _, seatId in ipairs(seatIds) do
			local holdKey = "seat_hold:" .. performanceId .. ":" .. seatId
			if redis.call("EXISTS", holdKey) == 0 then
				table.insert(expiredSeats, seatId)
			else
				table.insert(liveSeats, seatId)
			end
		end
	until cursor == "0"

	if #expiredSeats > 0 then
		redis.call("SREM", setKey, unpack(expiredSeats))
	end

	return liveSeats
`)

// RedisSeatHoldCache mirrors live holds into Redis with a TTL matching the
// hold deadline. Each hold is one key carrying the holder, plus membership in
// a per-performance set so availability reads can enumerate holds without
// scanning the keyspace.
type RedisSeatHoldCache struct {
	client redis.UniversalClient
}

func NewRedisSeatHoldCache(client redis.UniversalClient) *RedisSeatHoldCache {
	return &RedisSeatHoldCache{
		client: client,
	}
}

func (c *RedisSeatHoldCache) MarkHeld(
	ctx context.Context,
	performanceID, seatID int,
	holderID string,
	ttl time.Duration) error {

	pipe := c.client.TxPipeline()

	pipe.Set(ctx, seatHoldKey(performanceID, seatID), holderID, ttl)
	pipe.SAdd(ctx, seatHoldSetKey(performanceID), seatID)

	_, err := pipe.Exec(ctx)

	return err
}

func (c *RedisSeatHoldCache) Release(ctx context.Context, performanceID, seatID int) error {
	pipe := c.client.TxPipeline()

	pipe.Del(ctx, seatHoldKey(performanceID, seatID))
	pipe.SRem(ctx, seatHoldSetKey(performanceID), seatID)

	_, err := pipe.Exec(ctx)

	return err
}

func (c *RedisSeatHoldCache) HeldSeats(ctx context.Context, performanceID int) ([]int, error) {
	cmd := filterLiveHolds.Run(ctx, c.client, []string{seatHoldSetKey(performanceID)}, performanceID)

	seatIDs, err := cmd.Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run filterLiveHolds script: %w", err)
	}

	held := make([]int, len(seatIDs))
	for i, id := range seatIDs {
		held[i] = int(id)
	}

	return held, nil
}

func seatHoldKey(performanceID, seatID int) string {
	return fmt.Sprintf("seat_hold:%d:%d", performanceID, seatID)
}

func seatHoldSetKey(performanceID int) string {
	return fmt.Sprintf("seat_holds:%d", performanceID)
}
