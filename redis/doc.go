// Package redis wraps go-redis with the service's logging and config
// conventions.
//
// TypedStore stores JSON documents under a key prefix:
//
//	store := redis.NewTypedStore[speaker.Result](client, "speaker:result")
//	_ = store.Save(ctx, videoID, &result, time.Hour)
//	cached, err := store.Load(ctx, videoID) // nil, nil on miss
package redis
