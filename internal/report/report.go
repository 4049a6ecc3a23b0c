// Package report renders the outcome of a channel scan to a PNG bar
// chart: one bar per channel, bar height proportional to the captured
// sample size, live channels highlighted against the liveness threshold.
package report

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/fpv-tools/rx5808/internal/scan"
)

const (
	dpi      = 72.0
	fontSize = 11.0

	barWidth = 16
	barGap   = 6

	chartHeight  = 320
	topBorder    = 30
	leftBorder   = 60
	bottomBorder = 50
	rightBorder  = 20
)

var (
	backgroundColor = color.RGBA{R: 0x14, G: 0x14, B: 0x18, A: 0xFF}
	liveColor       = color.RGBA{R: 0x3C, G: 0xB3, B: 0x71, A: 0xFF}
	deadColor       = color.RGBA{R: 0x55, G: 0x55, B: 0x5E, A: 0xFF}
	thresholdColor  = color.RGBA{R: 0xE0, G: 0xA0, B: 0x30, A: 0xFF}
	axisColor       = color.RGBA{R: 0x90, G: 0x90, B: 0x98, A: 0xFF}
)

// Render draws the results as a bar chart and returns the image.
// Results are expected in channel-index order, the way the scan engine
// reports them.
func Render(results []scan.Result, threshold int64) (*image.RGBA, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no results to render")
	}

	width := leftBorder + len(results)*(barWidth+barGap) + rightBorder
	height := topBorder + chartHeight + bottomBorder

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	// Scale the chart so the threshold line sits well inside it even
	// when every channel is dead.
	maxSample := 2 * threshold
	for _, res := range results {
		if res.SampleSize > maxSample {
			maxSample = res.SampleSize
		}
	}
	if maxSample == 0 {
		maxSample = 1
	}

	scaleY := func(size int64) int {
		h := int(int64(chartHeight) * size / maxSample)
		if h > chartHeight {
			h = chartHeight
		}
		return h
	}

	baseline := topBorder + chartHeight
	for i, res := range results {
		h := scaleY(res.SampleSize)
		x0 := leftBorder + i*(barWidth+barGap)

		barColor := deadColor
		if res.Live {
			barColor = liveColor
		}
		bar := image.Rect(x0, baseline-h, x0+barWidth, baseline)
		draw.Draw(img, bar, image.NewUniform(barColor), image.Point{}, draw.Src)
	}

	// Threshold guideline across the chart area.
	ty := baseline - scaleY(threshold)
	for x := leftBorder; x < width-rightBorder; x += 4 {
		img.Set(x, ty, thresholdColor)
		img.Set(x+1, ty, thresholdColor)
	}

	// Baseline axis.
	for x := leftBorder; x < width-rightBorder; x++ {
		img.Set(x, baseline, axisColor)
	}

	if err := annotate(img, results, threshold, baseline, ty); err != nil {
		return nil, fmt.Errorf("annotating chart: %w", err)
	}

	return img, nil
}

// WritePNG renders the results and writes the chart to path.
func WritePNG(path string, results []scan.Result, threshold int64) error {
	img, err := Render(results, threshold)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

func annotate(img *image.RGBA, results []scan.Result, threshold int64, baseline, thresholdY int) error {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(fontSize)
	ctx.SetSrc(image.White)
	ctx.SetHinting(font.HintingFull)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)

	// Channel numbers under every fourth bar to keep the axis readable.
	for i, res := range results {
		if i%4 != 0 {
			continue
		}
		x := leftBorder + i*(barWidth+barGap)
		pt := freetype.Pt(x, baseline+18)
		if _, err := ctx.DrawString(fmt.Sprintf("%d", res.Index+1), pt); err != nil {
			return fmt.Errorf("drawing channel label: %w", err)
		}
	}

	// Threshold label on the left margin.
	pt := freetype.Pt(4, thresholdY+4)
	if _, err := ctx.DrawString(humanize.Bytes(uint64(threshold)), pt); err != nil {
		return fmt.Errorf("drawing threshold label: %w", err)
	}

	// Summary line: live count and strongest capture.
	live := 0
	var largest int64
	for _, res := range results {
		if res.Live {
			live++
		}
		if res.SampleSize > largest {
			largest = res.SampleSize
		}
	}
	summary := fmt.Sprintf("%d/%d live, largest sample %s",
		live, len(results), humanize.Bytes(uint64(largest)))
	pt = freetype.Pt(leftBorder, baseline+40)
	if _, err := ctx.DrawString(summary, pt); err != nil {
		return fmt.Errorf("drawing summary: %w", err)
	}

	return nil
}
