// Package lyric provides the LRC lyric timeline and active line lookup.
package lyric

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Line is a single cue of a lyric timeline.
type Line struct {
	Time float64 // Seconds from track start
	Text string  // Display text (never empty)
}

// Timeline is an ordered sequence of cues, in source order.
type Timeline []Line

// tagRe matches [mm:ss.xx] and [mm:ss.xxx].
var tagRe = regexp.MustCompile(`\[(\d{2}):(\d{2})\.(\d{2,3})\]`)

// Parse converts raw LRC text into a timeline.
// Lines without a timestamp tag, or with no text after it, are skipped.
// Cues keep the order they appear in; Parse never sorts and never fails.
func Parse(raw string) Timeline {
	timeline := Timeline{}
	if raw == "" {
		return timeline
	}

	for _, line := range strings.Split(raw, "\n") {
		loc := tagRe.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}

		minutes, _ := strconv.Atoi(line[loc[2]:loc[3]])
		seconds, _ := strconv.Atoi(line[loc[4]:loc[5]])
		digits := line[loc[6]:loc[7]]
		fraction, _ := strconv.Atoi(digits)
		if len(digits) == 2 {
			fraction *= 10 // hundredths to milliseconds
		}

		text := strings.TrimSpace(line[:loc[0]] + line[loc[1]:])
		if text == "" {
			continue
		}

		timeline = append(timeline, Line{
			Time: float64(minutes*60+seconds) + float64(fraction)/1000,
			Text: text,
		})
	}

	return timeline
}

// ActiveIndex returns the index of the line active at the given time,
// or -1 if no line has started yet.
//
// Among cues sharing a timestamp the last one wins, because the interval
// of every earlier one is empty.
func ActiveIndex(t Timeline, current float64) int {
	for i, line := range t {
		if current < line.Time {
			continue
		}
		if i == len(t)-1 || current < t[i+1].Time {
			return i
		}
	}
	return -1
}

// ActiveIndex is a shorthand for ActiveIndex(t, current).
func (t Timeline) ActiveIndex(current float64) int {
	return ActiveIndex(t, current)
}

// Sorted returns a copy of the timeline ordered by time.
// Cues with equal timestamps keep their relative order.
func (t Timeline) Sorted() Timeline {
	sorted := make(Timeline, len(t))
	copy(sorted, t)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})
	return sorted
}

// Texts returns the display texts in timeline order.
func (t Timeline) Texts() []string {
	texts := make([]string, len(t))
	for i, line := range t {
		texts[i] = line.Text
	}
	return texts
}
