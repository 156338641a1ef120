// Package utils
package utils

import "testing"

func intPtrs(values ...int) []*int {
	result := make([]*int, 0, len(values))
	for i := range values {
		result = append(result, &values[i])
	}
	return result
}

func TestFind(t *testing.T) {
	src := intPtrs(1, 2, 3, 4)
	found := Find(src, func(element *int) bool { return *element > 2 })
	if found == nil || *found != 3 {
		t.Errorf("Find should return the first match, got %v", found)
	}
	missing := Find(src, func(element *int) bool { return *element > 10 })
	if missing != nil {
		t.Errorf("Find without match should return nil, got %v", *missing)
	}
}

func TestFilter(t *testing.T) {
	src := intPtrs(1, 2, 3, 4, 5)
	result := Filter(src, func(element *int) bool { return *element%2 == 0 })
	if len(result) != 2 || *result[0] != 2 || *result[1] != 4 {
		t.Errorf("Filter returned unexpected result of length %d", len(result))
	}
}

func TestForEach(t *testing.T) {
	src := intPtrs(1, 2, 3)
	sum := 0
	ForEach(src, func(element *int) { sum += *element })
	if sum != 6 {
		t.Errorf("ForEach visited sum = %d; expected 6", sum)
	}
}

func TestReverseForEach(t *testing.T) {
	src := []int{1, 2, 3}
	visited := make([]int, 0, len(src))
	ReverseForEach(src, func(_ int, element int) { visited = append(visited, element) })
	if visited[0] != 3 || visited[2] != 1 {
		t.Errorf("ReverseForEach order = %v; expected reverse", visited)
	}
}
