package a1fs

import "testing"

func TestBitSetClearTest(t *testing.T) {
	bm := make([]byte, 4)
	bitSet(bm, 5)
	if !bitTest(bm, 5) {
		t.Fatalf("bit 5 should be set")
	}
	if bitTest(bm, 4) || bitTest(bm, 6) {
		t.Fatalf("neighbouring bits should be unaffected")
	}
	bitClear(bm, 5)
	if bitTest(bm, 5) {
		t.Fatalf("bit 5 should be cleared")
	}
}

func TestFirstZero(t *testing.T) {
	tests := []struct {
		name     string
		bm       []byte
		capacity uint32
		want     int64
	}{
		{"all free", []byte{0x00}, 8, 0},
		{"first bit used", []byte{0x01}, 8, 1},
		{"full byte", []byte{0xff}, 8, -1},
		{"capacity smaller than byte", []byte{0x00}, 3, 0},
		{"capacity smaller than byte, low bits used", []byte{0x07}, 3, -1},
		{"no full bytes, only a trailing partial byte", []byte{0x00}, 5, 0},
		{"no full bytes, trailing partial byte exhausted", []byte{0x1f}, 5, -1},
		{"second byte has the free bit", []byte{0xff, 0x01}, 16, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstZero(tt.bm, tt.capacity)
			if got != tt.want {
				t.Errorf("firstZero(%v, %d) = %d; want %d", tt.bm, tt.capacity, got, tt.want)
			}
		})
	}
}
