package report

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"weathervoice/internal/weather"
)

// chartGeometry holds the plotted points of the forecast chart, in pixels.
type chartGeometry struct {
	Max    []f32.Point
	Min    []f32.Point
	Lo, Hi float64 // temperature range of the Y axis
}

// layoutChart maps daily max/min temperatures into a width x height box
// with pad pixels of margin. The Y range is padded by one degree so that
// points never touch the edges.
func layoutChart(days []weather.ForecastDay, width, height, pad float32) chartGeometry {
	if len(days) == 0 {
		return chartGeometry{}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range days {
		lo = math.Min(lo, math.Min(d.MinTempC, d.MaxTempC))
		hi = math.Max(hi, math.Max(d.MinTempC, d.MaxTempC))
	}
	lo = math.Floor(lo) - 1
	hi = math.Ceil(hi) + 1

	innerW := width - 2*pad
	innerH := height - 2*pad

	x := func(i int) float32 {
		if len(days) == 1 {
			return width / 2
		}
		return pad + float32(i)*innerW/float32(len(days)-1)
	}
	y := func(t float64) float32 {
		return pad + float32((hi-t)/(hi-lo))*innerH
	}

	g := chartGeometry{
		Max: make([]f32.Point, len(days)),
		Min: make([]f32.Point, len(days)),
		Lo:  lo,
		Hi:  hi,
	}
	for i, d := range days {
		g.Max[i] = f32.Pt(x(i), y(d.MaxTempC))
		g.Min[i] = f32.Pt(x(i), y(d.MinTempC))
	}
	return g
}

// drawChart draws the max/min temperature lines with weekday labels.
func drawChart(gtx layout.Context, th *material.Theme, cfg Config, days []weather.ForecastDay) layout.Dimensions {
	size := gtx.Constraints.Max
	drawPanel(gtx, cfg.PanelColor, size)

	if len(days) == 0 {
		return layout.Dimensions{Size: size}
	}

	pad := float32(gtx.Dp(unit.Dp(28)))
	// Leave room for the weekday labels under the plot
	labelH := gtx.Dp(unit.Dp(20))
	g := layoutChart(days, float32(size.X), float32(size.Y-labelH), pad)

	strokeLine(gtx, g.Max, cfg.MaxTempColor)
	strokeLine(gtx, g.Min, cfg.MinTempColor)

	for i, d := range days {
		drawPoint(gtx, g.Max[i], cfg.MaxTempColor)
		drawPoint(gtx, g.Min[i], cfg.MinTempColor)

		drawLabelAt(gtx, th, fmt.Sprintf("%.0f°", d.MaxTempC), cfg.MaxTempColor,
			image.Pt(int(g.Max[i].X)-gtx.Dp(unit.Dp(10)), int(g.Max[i].Y)-gtx.Dp(unit.Dp(22))))
		drawLabelAt(gtx, th, fmt.Sprintf("%.0f°", d.MinTempC), cfg.MinTempColor,
			image.Pt(int(g.Min[i].X)-gtx.Dp(unit.Dp(10)), int(g.Min[i].Y)+gtx.Dp(unit.Dp(6))))
		drawLabelAt(gtx, th, d.Weekday(), cfg.TextDimColor,
			image.Pt(int(g.Max[i].X)-gtx.Dp(unit.Dp(12)), size.Y-labelH))
	}

	// Legend
	drawLabelAt(gtx, th, "Max °C", cfg.MaxTempColor, image.Pt(gtx.Dp(unit.Dp(8)), gtx.Dp(unit.Dp(4))))
	drawLabelAt(gtx, th, "Min °C", cfg.MinTempColor, image.Pt(gtx.Dp(unit.Dp(64)), gtx.Dp(unit.Dp(4))))

	return layout.Dimensions{Size: size}
}

func strokeLine(gtx layout.Context, pts []f32.Point, col color.NRGBA) {
	if len(pts) < 2 {
		return
	}
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(pts[0])
	for _, p := range pts[1:] {
		path.LineTo(p)
	}
	paint.FillShape(gtx.Ops, col, clip.Stroke{
		Path:  path.End(),
		Width: float32(gtx.Dp(unit.Dp(2))),
	}.Op())
}

func drawPoint(gtx layout.Context, p f32.Point, col color.NRGBA) {
	r := gtx.Dp(unit.Dp(4))
	c := image.Pt(int(p.X), int(p.Y))
	dot := clip.Ellipse{
		Min: c.Sub(image.Pt(r, r)),
		Max: c.Add(image.Pt(r, r)),
	}
	paint.FillShape(gtx.Ops, col, dot.Op(gtx.Ops))
}

func drawLabelAt(gtx layout.Context, th *material.Theme, text string, col color.NRGBA, at image.Point) {
	defer op.Offset(at).Push(gtx.Ops).Pop()
	gtx.Constraints.Min = image.Point{}
	lbl := material.Label(th, unit.Sp(11), text)
	lbl.Color = col
	lbl.Layout(gtx)
}
