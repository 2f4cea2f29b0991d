package auth

import (
	"hash/crc32"
	"sort"
	"strconv"
)

// ShardRing 把令牌稳定地映射到某个缓存分片上。
// 多实例部署时同一令牌总落在同一片，缓存互不踩踏。
// 环在启动时构建完成后只读，不需要加锁。
type ShardRing struct {
	vnodes []vnode
}

type vnode struct {
	sum   uint32
	shard string
}

// NewShardRing 构建分片环。shards 为空时退化为单片，
// replicas 是每个分片的虚拟节点数，越大分布越均匀
func NewShardRing(shards []string, replicas int) *ShardRing {
	if len(shards) == 0 {
		shards = []string{"shard-0"}
	}
	if replicas <= 0 {
		replicas = 50
	}
	r := &ShardRing{vnodes: make([]vnode, 0, len(shards)*replicas)}
	for _, s := range shards {
		for i := 0; i < replicas; i++ {
			sum := crc32.ChecksumIEEE([]byte(s + "#" + strconv.Itoa(i)))
			r.vnodes = append(r.vnodes, vnode{sum: sum, shard: s})
		}
	}
	sort.Slice(r.vnodes, func(i, j int) bool { return r.vnodes[i].sum < r.vnodes[j].sum })
	return r
}

// Pick 返回 key 沿环顺时针遇到的第一个分片
func (r *ShardRing) Pick(key string) string {
	sum := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(r.vnodes), func(i int) bool { return r.vnodes[i].sum >= sum })
	if idx == len(r.vnodes) {
		idx = 0
	}
	return r.vnodes[idx].shard
}
