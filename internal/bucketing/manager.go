package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
)

// BucketingManager assigns identities to stable buckets. Buckets spread the
// Scylla partitions and let audit events reference a phone number without
// recording it.
type BucketingManager struct {
	userBuckets int
	hasherPool  sync.Pool
}

func NewBucketingManager(userBuckets int) *BucketingManager {
	bm := &BucketingManager{
		userBuckets: userBuckets,
	}

	// Pool of hash functions to avoid allocation overhead
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// GetUserBucket returns a consistent bucket for a phone number (0 to userBuckets-1).
func (bm *BucketingManager) GetUserBucket(phone string) int {
	return bm.getBucket(phone, bm.userBuckets)
}

// GetDateBucket returns the UTC date bucket for the given instant, used for
// event index partitioning.
func (bm *BucketingManager) GetDateBucket(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}

func (bm *BucketingManager) getBucket(identifier string, buckets int) int {
	if buckets <= 0 {
		return 0
	}

	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	_, _ = hasher.Write([]byte(identifier))

	return int(hasher.Sum64() % uint64(buckets))
}
