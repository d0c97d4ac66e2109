package timeseries

import "time"

// FillGaps reindexes a series onto a gapless grid at its cadence and repairs
// the missing slots.
//
// The grid spans the first to the last known timestamp. Slots are dropped
// when the hour they fall in has a zero total over its known samples; the
// rest are filled by linear interpolation over time with edge values held
// constant. An active hour whose present samples happen to sum to exactly
// zero is indistinguishable from an inactive one and is treated as inactive.
func FillGaps(s Series, cadence Cadence) (Series, error) {
	if cadence <= 0 {
		return nil, ErrInvalidCadence
	}
	known := s.known()
	if len(known) == 0 {
		return nil, ErrEmptySeries
	}

	grid := reindex(known, cadence.Duration())
	totals := hourlySums(grid)

	kept := make(Series, 0, len(grid))
	for _, slot := range grid {
		if !slot.Valid && totals[HourBucket(slot.At)] == 0 {
			continue
		}
		kept = append(kept, slot)
	}

	interpolateQuantities(kept)
	fillAttributes(kept)
	return kept, nil
}

// reindex places samples on an evenly spaced grid anchored at the first
// sample. Samples off the grid are discarded.
func reindex(known Series, step time.Duration) Series {
	start := known[0].At
	end := known[len(known)-1].At
	grid := make(Series, int(end.Sub(start)/step)+1)
	for i := range grid {
		grid[i] = Sample{At: start.Add(time.Duration(i) * step)}
	}
	for _, smp := range known {
		offset := smp.At.Sub(start)
		if offset%step != 0 {
			continue
		}
		grid[offset/step] = smp
	}
	return grid
}

func hourlySums(grid Series) map[time.Time]float64 {
	totals := make(map[time.Time]float64)
	for _, slot := range grid {
		if slot.Valid {
			totals[HourBucket(slot.At)] += slot.Quantity
		}
	}
	return totals
}

func interpolateQuantities(slots Series) {
	prev := -1
	for i := 0; i < len(slots); i++ {
		if slots[i].Valid {
			prev = i
			continue
		}
		next := i + 1
		for next < len(slots) && !slots[next].Valid {
			next++
		}
		for j := i; j < next && j < len(slots); j++ {
			slots[j].Quantity = interpolateAt(slots, prev, next, slots[j].At)
			slots[j].Valid = true
			slots[j].Interpolated = true
		}
		i = next - 1
	}
}

func interpolateAt(slots Series, prev, next int, at time.Time) float64 {
	switch {
	case prev < 0 && next >= len(slots):
		return 0
	case prev < 0:
		return slots[next].Quantity
	case next >= len(slots):
		return slots[prev].Quantity
	}
	left, right := slots[prev], slots[next]
	span := right.At.Sub(left.At)
	if span <= 0 {
		return left.Quantity
	}
	ratio := float64(at.Sub(left.At)) / float64(span)
	return left.Quantity + (right.Quantity-left.Quantity)*ratio
}

// fillAttributes carries categorical attributes forward, then backward for
// leading slots.
func fillAttributes(slots Series) {
	var country CountryCode
	var energyType EnergyType
	for i := range slots {
		if slots[i].Country == "" {
			slots[i].Country = country
		} else {
			country = slots[i].Country
		}
		if slots[i].EnergyType == "" {
			slots[i].EnergyType = energyType
		} else {
			energyType = slots[i].EnergyType
		}
	}
	country, energyType = "", ""
	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i].Country == "" {
			slots[i].Country = country
		} else {
			country = slots[i].Country
		}
		if slots[i].EnergyType == "" {
			slots[i].EnergyType = energyType
		} else {
			energyType = slots[i].EnergyType
		}
	}
}
