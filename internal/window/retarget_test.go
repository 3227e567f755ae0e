package window

import "testing"

func TestRetarget(t *testing.T) {
	tests := []struct {
		name       string
		bbox       BBox
		offX, offY int
		tileSize   int
		want       BBox
		wantKept   bool
	}{
		{
			// tileSize=256, annotation [200,200,40,40] on the base tile of
			// a (128,128) window: translated to [72,72,40,40], unclipped.
			name: "translated unclipped",
			bbox: BBox{X: 200, Y: 200, W: 40, H: 40},
			offX: 128, offY: 128, tileSize: 256,
			want: BBox{X: 72, Y: 72, W: 40, H: 40}, wantKept: true,
		},
		{
			name: "clipped at left edge",
			bbox: BBox{X: 100, Y: 0, W: 60, H: 20},
			offX: 128, offY: 0, tileSize: 256,
			want: BBox{X: 0, Y: 0, W: 32, H: 20}, wantKept: true,
		},
		{
			name: "clipped at right edge",
			bbox: BBox{X: 240, Y: 10, W: 40, H: 10},
			offX: 0, offY: 0, tileSize: 256,
			want: BBox{X: 240, Y: 10, W: 16, H: 10}, wantKept: true,
		},
		{
			name: "entirely left of window",
			bbox: BBox{X: 10, Y: 10, W: 40, H: 40},
			offX: 128, offY: 0, tileSize: 256,
			wantKept: false,
		},
		{
			name: "degenerates to zero width",
			bbox: BBox{X: 88, Y: 10, W: 40, H: 40},
			offX: 128, offY: 0, tileSize: 256,
			wantKept: false,
		},
		{
			name: "negative placement shifts right",
			bbox: BBox{X: 10, Y: 10, W: 40, H: 40},
			offX: -128, offY: -128, tileSize: 256,
			want: BBox{X: 138, Y: 138, W: 40, H: 40}, wantKept: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kept := Retarget(tt.bbox, tt.offX, tt.offY, tt.tileSize)
			if kept != tt.wantKept {
				t.Fatalf("kept = %v, want %v", kept, tt.wantKept)
			}
			if kept && got != tt.want {
				t.Errorf("Retarget = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRetarget_Idempotent(t *testing.T) {
	// Clipping an already-clipped bbox against the same window a second
	// time (zero placement offset) must be a no-op.
	boxes := []BBox{
		{X: 100, Y: 0, W: 60, H: 20},
		{X: 200, Y: 200, W: 40, H: 40},
		{X: 0, Y: 0, W: 256, H: 256},
		{X: 250, Y: 250, W: 100, H: 100},
	}

	for _, b := range boxes {
		first, kept := Retarget(b, 0, 0, 256)
		if !kept {
			continue
		}
		second, kept := Retarget(first, 0, 0, 256)
		if !kept {
			t.Errorf("second clip dropped surviving bbox %+v", first)
			continue
		}
		if second != first {
			t.Errorf("clip not idempotent: %+v then %+v", first, second)
		}
	}
}

func TestBBox_Slice(t *testing.T) {
	b := BBox{X: 1, Y: 2, W: 3, H: 4}
	got := b.Slice()
	want := []float64{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Slice()[%d] = %f, want %f", i, got[i], want[i])
		}
	}
	if b.Area() != 12 {
		t.Errorf("Area() = %f, want 12", b.Area())
	}
}
