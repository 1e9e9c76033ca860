package core

import "testing"

func TestCellEmpty(t *testing.T) {
	var c Cell[int]
	if _, ok := c.Load(); ok {
		t.Error("empty cell should report no snapshot")
	}
}

func TestCellReplacesWholesale(t *testing.T) {
	var c Cell[[]string]
	c.Store([]string{"a", "b"})
	c.Store([]string{"c"})

	v, ok := c.Load()
	if !ok {
		t.Fatal("snapshot should be present")
	}
	if len(v) != 1 || v[0] != "c" {
		t.Errorf("latest delivery should win, got %v", v)
	}
}
