package simulation

// trialSeed derives an independent sub-stream seed from the run seed and the
// trial index (splitmix64 finalizer). Keying streams by trial rather than by
// worker keeps the population bit-identical regardless of worker count or
// scheduling order.
func trialSeed(runSeed, trial uint64) uint64 {
	x := runSeed + (trial+1)*0x9E3779B97F4A7C15
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	return x
}
