package consumer

import "github.com/superhow/catapult-server/model"

// scoreOf sums each element's (difficulty - 1) across the segment. This is
// the chain-score contribution used for the strict-improvement comparison
// in score arbitration (spec §4.5, §8): a run of blocks at exactly the
// locally expected difficulty scores 0 per block above the floor, so a
// shorter but harder candidate can still outscore a longer, easier one.
func scoreOf(elements []*model.BlockElement) int64 {
	var total int64
	for _, e := range elements {
		total += int64(e.Block.Difficulty()) - 1
	}
	return total
}
