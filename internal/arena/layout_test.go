package arena

import "testing"

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()
	if n := len(l.Platforms()); n != 3 {
		t.Fatalf("len(Platforms()) = %d, expected 3", n)
	}

	expected := []Platform{
		{X: 200, Y: 600, Width: 600, Height: 20},
		{X: 400, Y: 300, Width: 100, Height: 20},
		{X: 514, Y: 450, Width: 100, Height: 20},
	}
	for i, p := range l.Platforms() {
		if p != expected[i] {
			t.Errorf("platform %d = %+v, expected %+v", i, p, expected[i])
		}
	}
}

func TestPlatformsReturnsCopy(t *testing.T) {
	l := DefaultLayout()
	ps := l.Platforms()
	ps[0].X = -1

	if l.Platforms()[0].X != 200 {
		t.Error("mutating the returned slice changed the layout")
	}
}

func TestSpawn(t *testing.T) {
	x, y, right := Spawn(1)
	if x != 300 || y != 580 || right {
		t.Errorf("Spawn(1) = (%v, %v, %v), expected (300, 580, false)", x, y, right)
	}

	x, y, right = Spawn(2)
	if x != 700 || y != 580 || !right {
		t.Errorf("Spawn(2) = (%v, %v, %v), expected (700, 580, true)", x, y, right)
	}
}

func TestClampX(t *testing.T) {
	tests := []struct {
		val, expected float64
	}{
		{500, 500},
		{10, MinX},
		{2000, MaxX},
		{MinX, MinX},
		{MaxX, MaxX},
	}

	for _, tc := range tests {
		if got := ClampX(tc.val); got != tc.expected {
			t.Errorf("ClampX(%v) = %v, expected %v", tc.val, got, tc.expected)
		}
	}
}
