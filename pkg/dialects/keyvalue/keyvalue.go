// Package keyvalue provides the command vocabulary for key-value stores such
// as Redis. It has no SQL grammar, so diagnostics are skipped.
package keyvalue

import "github.com/leapstack-labs/sqlsense/pkg/dialect"

func init() {
	dialect.Register(KeyValue)
}

// KeyValue is the Redis-style command dialect.
var KeyValue = dialect.NewDialect("keyvalue", dialect.KeyValueStore).
	DisplayName("Key-Value").
	Keywords(
		"DEL", "EXISTS", "EXPIRE", "TTL", "INCR", "DECR", "MGET", "MSET", "HSET", "HGETALL",
		"HDEL", "LPUSH", "RPUSH", "LPOP", "RPOP", "LRANGE", "SADD", "SMEMBERS", "ZADD", "ZRANGE",
		"SCAN", "TYPE", "PING", "SELECT", "FLUSHDB", "INFO",
	).
	StatementKeywords("GET", "SET", "HGET", "KEYS").
	KeywordDocs(map[string]string{
		"GET":  "Returns the string value of a key.",
		"SET":  "Sets the string value of a key.",
		"HGET": "Returns the value of a hash field.",
		"KEYS": "Returns all keys matching a pattern.",
		"DEL":  "Deletes one or more keys.",
	}).
	WithoutSQLGrammar().
	Build()
