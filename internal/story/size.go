package story

import (
	"fmt"
	"strings"
)

type StorySize string

const (
	SizeQuick    StorySize = "Quick"
	SizeShort    StorySize = "Short"
	SizeNormal   StorySize = "Normal"
	SizeLong     StorySize = "Long"
	SizeExtended StorySize = "Extended"
	SizeHuge     StorySize = "Huge"
	SizeEpic     StorySize = "Epic"
)

var sizeBudgets = []struct {
	size  StorySize
	nodes int
}{
	{SizeQuick, 10},
	{SizeShort, 25},
	{SizeNormal, 50},
	{SizeLong, 100},
	{SizeExtended, 200},
	{SizeHuge, 350},
	{SizeEpic, 500},
}

// StorySizes lists the sizes from smallest to largest.
func StorySizes() []StorySize {
	out := make([]StorySize, 0, len(sizeBudgets))
	for _, entry := range sizeBudgets {
		out = append(out, entry.size)
	}
	return out
}

// ParseStorySize matches a size name case-insensitively.
func ParseStorySize(value string) (StorySize, error) {
	for _, entry := range sizeBudgets {
		if strings.EqualFold(string(entry.size), strings.TrimSpace(value)) {
			return entry.size, nil
		}
	}
	return "", fmt.Errorf("unknown story size %q", value)
}

// NodeBudget is the total number of nodes a story of this size may hold.
func (s StorySize) NodeBudget() int {
	for _, entry := range sizeBudgets {
		if entry.size == s {
			return entry.nodes
		}
	}
	return 0
}
