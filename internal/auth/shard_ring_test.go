package auth

import "testing"

func TestShardRingStableMapping(t *testing.T) {
	ring := NewShardRing([]string{"cache-a", "cache-b", "cache-c"}, 80)

	keys := []string{"tok-1", "tok-2", "another-token", "", "很长的令牌串"}
	for _, k := range keys {
		first := ring.Pick(k)
		if first == "" {
			t.Fatalf("Pick(%q) 返回空分片", k)
		}
		for i := 0; i < 5; i++ {
			if got := ring.Pick(k); got != first {
				t.Fatalf("Pick(%q) 不稳定: %q != %q", k, got, first)
			}
		}
	}
}

func TestShardRingDefaults(t *testing.T) {
	ring := NewShardRing(nil, 0)
	if got := ring.Pick("anything"); got != "shard-0" {
		t.Fatalf("空分片列表应退化为单片, got %q", got)
	}
}

func TestShardRingSpread(t *testing.T) {
	ring := NewShardRing([]string{"a", "b"}, 100)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[ring.Pick(string(rune('A'+i)))] = true
	}
	if len(seen) != 2 {
		t.Fatalf("200 个键只落在 %d 个分片上", len(seen))
	}
}
