// 包 cache：签名结果缓存（进程内 LRU + 可选 Redis），按链路顺序读取并回填
package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"geohash-signature/internal/metrics"
	"geohash-signature/internal/signature"

	"github.com/cespare/xxhash/v2"
)

// Entry：一次生成的结果；ID 为持久化记录号（未持久化时为空）
type Entry struct {
	ID        string               `json:"id,omitempty"`
	Level     int                  `json:"level"`
	Relations []string             `json:"relations"`
	Signature signature.Compressed `json:"signature"`
}

// Layer：缓存层
type Layer interface {
	Name() string
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, e Entry)
}

// Key：形状 WKB、级别、关系列表与生成方式的摘要；关系按给定顺序参与计算
func Key(wkb []byte, level int, relations []string, partitioned bool) string {
	h := xxhash.New()
	_, _ = h.Write(wkb)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(level))
	_, _ = h.Write(buf[:])
	_, _ = h.WriteString(strings.Join(relations, ","))
	mode := "d"
	if partitioned {
		mode = "p"
	}
	return fmt.Sprintf("sig:%016x:%d:%s", h.Sum64(), level, mode)
}

// ShapeKey：仅形状的摘要，用于持久化索引
func ShapeKey(wkb []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(wkb))
}

// Chain：按顺序读取各层；后层命中时回填前面的层
type Chain struct {
	layers []Layer
}

func NewChain(layers ...Layer) *Chain {
	return &Chain{layers: layers}
}

func (c *Chain) Get(ctx context.Context, key string) (Entry, bool) {
	for i, l := range c.layers {
		e, ok := l.Get(ctx, key)
		if !ok {
			continue
		}
		metrics.CacheHitsTotal.WithLabelValues(l.Name()).Inc()
		for j := 0; j < i; j++ {
			c.layers[j].Set(ctx, key, e)
		}
		return e, true
	}
	metrics.CacheMissesTotal.Inc()
	return Entry{}, false
}

func (c *Chain) Set(ctx context.Context, key string, e Entry) {
	for _, l := range c.layers {
		l.Set(ctx, key, e)
	}
}

func (c *Chain) Len() int { return len(c.layers) }
