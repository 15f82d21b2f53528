// Package gpu implements GPU activity-interval bookkeeping: sorting and
// merging overlapping kernel records, computing the memory-exclusive time
// window, and the two-method plugin trait a GPU backend implements to
// report measurements.
package gpu

import "sort"

// Record is one activity interval on a GPU stream: a kernel launch or a
// memory transfer, timestamped in nanoseconds. Mirrors gpu_record_t.
type Record struct {
	Start uint64
	End   uint64
}

// CleanAndMerge drops invalid (End <= Start) records, sorts the rest by
// start time, and merges overlapping or contained intervals in place,
// returning the cleaned slice. Mirrors gpu_record_clean_and_merge.
func CleanAndMerge(records []Record) []Record {
	valid := records[:0]
	for _, r := range records {
		if r.End > r.Start {
			valid = append(valid, r)
		}
	}
	if len(valid) <= 1 {
		return valid
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i].Start < valid[j].Start })

	newI := 0
	for i := 1; i < len(valid); i++ {
		if valid[newI].End >= valid[i].Start {
			if valid[i].End > valid[newI].End {
				valid[newI].End = valid[i].End
			}
		} else {
			newI++
			valid[newI] = valid[i]
		}
	}
	return valid[:newI+1]
}

// DropBeforeWatermark removes every record ending at or before watermark,
// in place. Handles a GPU runtime flushing records out of order after a
// device or stream reset: anything timestamped before the reset point is
// stale and must not be attributed to the activity window that follows.
func DropBeforeWatermark(records []Record, watermark uint64) []Record {
	kept := records[:0]
	for _, r := range records {
		if r.End > watermark {
			kept = append(kept, r)
		}
	}
	return kept
}

// Duration sums the length of every record. PRE: records is sorted and
// merged (CleanAndMerge's output), so intervals never overlap. Mirrors
// gpu_record_get_duration.
func Duration(records []Record) uint64 {
	var total uint64
	for _, r := range records {
		total += r.End - r.Start
	}
	return total
}

// MemoryExclusiveDuration computes how much of memRecords' total span is
// NOT covered by any kernelRecords interval: a two-pointer sweep over both
// (already sorted and merged) slices. Mirrors
// gpu_record_get_memory_exclusive_duration.
func MemoryExclusiveDuration(memRecords, kernelRecords []Record) uint64 {
	var total uint64
	k := 0

	for _, mem := range memRecords {
		exclStart := mem.Start
		var excl uint64

		for k < len(kernelRecords) && kernelRecords[k].End <= mem.Start {
			k++
		}

		for k < len(kernelRecords) && kernelRecords[k].Start < mem.End {
			if kernelRecords[k].Start > exclStart {
				excl += kernelRecords[k].Start - exclStart
			}
			if kernelRecords[k].End >= mem.End {
				exclStart = mem.End
				break
			}
			exclStart = kernelRecords[k].End
			k++
		}

		if exclStart < mem.End {
			excl += mem.End - exclStart
		}
		total += excl
	}

	return total
}
