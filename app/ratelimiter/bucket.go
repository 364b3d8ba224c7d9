package ratelimiter

// TokenBucket is a token bucket refilled at discrete ticks.
// Content is measured in bytes and stays within [0, capacity].
type TokenBucket struct {
	tokensPerTick float64
	capacity      float64
	content       float64
}

// NewTokenBucket creates a token bucket.
func NewTokenBucket(rate, capacity, initial float64, tickRate int) (tb TokenBucket) {
	tb.Reset(rate, capacity, initial, tickRate)
	return tb
}

// Reset replaces bucket parameters.
func (tb *TokenBucket) Reset(rate, capacity, initial float64, tickRate int) {
	tb.tokensPerTick = rate / float64(tickRate)
	tb.capacity = capacity
	tb.content = max(0, min(initial, capacity))
}

// Tick adds one tick worth of tokens.
func (tb *TokenBucket) Tick() {
	tb.content = min(tb.content+tb.tokensPerTick, tb.capacity)
}

// Admit consumes length tokens if available.
// Content is unchanged when the packet is denied.
func (tb *TokenBucket) Admit(length int) bool {
	l := float64(length)
	if l > tb.content {
		return false
	}
	tb.content -= l
	return true
}

// Content returns current content in bytes.
func (tb TokenBucket) Content() float64 {
	return tb.content
}

// Capacity returns bucket capacity in bytes.
func (tb TokenBucket) Capacity() float64 {
	return tb.capacity
}

// TokensPerTick returns tokens added per tick.
func (tb TokenBucket) TokensPerTick() float64 {
	return tb.tokensPerTick
}
