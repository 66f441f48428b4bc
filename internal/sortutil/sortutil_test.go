package sortutil

import (
	"reflect"
	"testing"
)

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"res/b.png": 2, "res/a.png": 1, "AndroidManifest.xml": 0}
	want := []string{"AndroidManifest.xml", "res/a.png", "res/b.png"}
	if got := SortedKeys(m); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got := SortedKeys(map[int]struct{}{3: {}, 1: {}, 2: {}}); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("got %v", got)
	}
	if got := SortedKeys(map[int]bool{}); len(got) != 0 {
		t.Fatalf("empty map got %v", got)
	}
}
