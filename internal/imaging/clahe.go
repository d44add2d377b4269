package imaging

// CLAHE applies contrast-limited adaptive histogram equalization to the
// luminance channel and rescales the color channels proportionally. Lighting
// differences between the reference template and the live window are the main
// source of missed matches, so both sides of a comparison go through this
// before correlation.
func CLAHE(f *Frame, clipLimit float64, tiles int) *Frame {
	if f == nil || f.W == 0 || f.H == 0 {
		return f
	}
	if tiles < 1 {
		tiles = 1
	}
	if tiles > f.W {
		tiles = f.W
	}
	if tiles > f.H {
		tiles = f.H
	}

	luma := f.Gray()
	luts := buildTileLUTs(luma, clipLimit, tiles)

	out := NewFrame(f.W, f.H)
	tileW := float64(f.W) / float64(tiles)
	tileH := float64(f.H) / float64(tiles)

	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			oldY := luma.At(x, y)
			newY := interpolateLUT(luts, tiles, tileW, tileH, x, y, oldY)

			scale := float32(1)
			if oldY > 0.5 {
				scale = newY / oldY
			}
			b, g, r := f.BGR(x, y)
			out.SetBGR(x, y, scaleByte(b, scale), scaleByte(g, scale), scaleByte(r, scale))
		}
	}
	return out
}

func scaleByte(v byte, s float32) byte {
	scaled := float32(v) * s
	if scaled > 255 {
		return 255
	}
	if scaled < 0 {
		return 0
	}
	return byte(scaled)
}

// buildTileLUTs computes one clipped-equalization lookup table per tile.
func buildTileLUTs(luma *Gray, clipLimit float64, tiles int) [][]float32 {
	luts := make([][]float32, tiles*tiles)

	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			x0 := tx * luma.W / tiles
			x1 := (tx + 1) * luma.W / tiles
			y0 := ty * luma.H / tiles
			y1 := (ty + 1) * luma.H / tiles

			var hist [256]float64
			n := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					v := int(luma.At(x, y))
					if v > 255 {
						v = 255
					}
					hist[v]++
					n++
				}
			}
			luts[ty*tiles+tx] = clippedCDF(hist[:], n, clipLimit)
		}
	}
	return luts
}

// clippedCDF clips the histogram at clipLimit times the uniform bin height,
// redistributes the excess evenly, and returns the equalization mapping.
func clippedCDF(hist []float64, n int, clipLimit float64) []float32 {
	lut := make([]float32, 256)
	if n == 0 {
		for i := range lut {
			lut[i] = float32(i)
		}
		return lut
	}

	ceil := clipLimit * float64(n) / 256.0
	var excess float64
	for i, h := range hist {
		if h > ceil {
			excess += h - ceil
			hist[i] = ceil
		}
	}
	redist := excess / 256.0
	var cum float64
	for i := range lut {
		cum += hist[i] + redist
		lut[i] = float32(cum / float64(n) * 255.0)
	}
	return lut
}

// interpolateLUT bilinearly blends the mappings of the four nearest tiles.
func interpolateLUT(luts [][]float32, tiles int, tileW, tileH float64, x, y int, v float32) float32 {
	bin := int(v)
	if bin > 255 {
		bin = 255
	}
	if bin < 0 {
		bin = 0
	}

	// Tile-center coordinates of the pixel.
	fx := (float64(x)+0.5)/tileW - 0.5
	fy := (float64(y)+0.5)/tileH - 0.5

	tx0 := clampTile(int(fx), tiles)
	ty0 := clampTile(int(fy), tiles)
	tx1 := clampTile(tx0+1, tiles)
	ty1 := clampTile(ty0+1, tiles)

	wx := fx - float64(tx0)
	wy := fy - float64(ty0)
	if wx < 0 {
		wx = 0
	}
	if wx > 1 {
		wx = 1
	}
	if wy < 0 {
		wy = 0
	}
	if wy > 1 {
		wy = 1
	}

	v00 := float64(luts[ty0*tiles+tx0][bin])
	v10 := float64(luts[ty0*tiles+tx1][bin])
	v01 := float64(luts[ty1*tiles+tx0][bin])
	v11 := float64(luts[ty1*tiles+tx1][bin])

	top := v00*(1-wx) + v10*wx
	bottom := v01*(1-wx) + v11*wx
	return float32(top*(1-wy) + bottom*wy)
}

func clampTile(t, tiles int) int {
	if t < 0 {
		return 0
	}
	if t >= tiles {
		return tiles - 1
	}
	return t
}
