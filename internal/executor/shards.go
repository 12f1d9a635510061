package executor

// shard is a half-open range [lo, hi) of gene assignment ordinals.
type shard struct {
	lo, hi int64
}

// planShards splits [0, total) into at most want contiguous, non-empty,
// near-equal ranges in ascending order.
func planShards(total int64, want int) []shard {
	if total <= 0 {
		return nil
	}
	if want <= 0 {
		want = 1
	}
	if int64(want) > total {
		want = int(total)
	}

	shards := make([]shard, want)
	size, rem := total/int64(want), total%int64(want)
	var lo int64
	for i := range shards {
		hi := lo + size
		if int64(i) < rem {
			hi++
		}
		shards[i] = shard{lo: lo, hi: hi}
		lo = hi
	}
	return shards
}
