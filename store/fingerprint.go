package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/cespare/xxhash"
	"github.com/samber/lo"

	"github.com/domino14/golfsim/montecarlo"
	"github.com/domino14/golfsim/payout"
)

// Fingerprint hashes everything that determines a simulation's expected
// results: the parameters, every golfer's distribution and the purse.
// Golfers and purse entries are hashed in sorted order.
func Fingerprint(p montecarlo.Params, results map[uint32]montecarlo.Result, purse payout.Table) uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		d.Write(buf[:])
	}
	for _, v := range []int{p.NumSims, p.NumRounds, p.CutRound, p.CutLine} {
		put(uint64(v))
	}
	ids := lo.Keys(results)
	slices.Sort(ids)
	for _, id := range ids {
		put(uint64(id))
		put(math.Float64bits(results[id].Index))
		put(math.Float64bits(results[id].StdDev))
	}
	ranks := lo.Keys(purse)
	slices.Sort(ranks)
	for _, rank := range ranks {
		put(uint64(rank))
		put(math.Float64bits(purse[rank]))
	}
	return d.Sum64()
}

func fingerprintString(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}
