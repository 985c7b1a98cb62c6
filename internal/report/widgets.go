package report

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"gioui.org/f32"
	"gioui.org/font"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"weathervoice/internal/audio"
	"weathervoice/internal/workflow"
)

// drawWindow draws the whole window: status line on top, then either the
// level meter, the report or a hint.
func drawWindow(gtx layout.Context, th *material.Theme, cfg Config, v view, closeBtn *widget.Clickable) layout.Dimensions {
	drawBackground(gtx, cfg.BGColor)

	return layout.UniformInset(unit.Dp(16)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			// Status row + close button
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						if v.busy() {
							return drawSpinner(gtx, cfg.ProgressColor, time.Now())
						}
						return drawDot(gtx, cfg.StatusColor(v.severity))
					}),
					layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
					layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
						lbl := material.Label(th, unit.Sp(14), v.status)
						lbl.Color = cfg.StatusColor(v.severity)
						if v.severity == workflow.SeverityInfo {
							lbl.Color = cfg.TextColor
						}
						lbl.Font.Weight = font.Medium
						lbl.MaxLines = 2
						return lbl.Layout(gtx)
					}),
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						return drawCloseButton(gtx, closeBtn, cfg.TextDimColor)
					}),
				)
			}),

			layout.Rigid(layout.Spacer{Height: unit.Dp(12)}.Layout),

			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
				switch {
				case v.recording:
					return drawRecording(gtx, th, cfg, v.level, v.history)
				case v.result != nil:
					return drawReport(gtx, th, cfg, v.result)
				default:
					lbl := material.Label(th, unit.Sp(13), "Choose \"Get Weather\" in the tray or press the hotkey, then say a city name.")
					lbl.Color = cfg.TextDimColor
					return lbl.Layout(gtx)
				}
			}),
		)
	})
}

// drawBackground draws a rectangle background.
func drawBackground(gtx layout.Context, col color.NRGBA) {
	rect := clip.Rect{Max: gtx.Constraints.Max}
	paint.FillShape(gtx.Ops, col, rect.Op())
}

// drawPanel fills a rounded panel of the given size.
func drawPanel(gtx layout.Context, col color.NRGBA, size image.Point) {
	rr := gtx.Dp(unit.Dp(8))
	rect := clip.RRect{
		Rect: image.Rectangle{Max: size},
		NE:   rr, NW: rr, SE: rr, SW: rr,
	}
	paint.FillShape(gtx.Ops, col, rect.Op(gtx.Ops))
}

// panel lays out content on a rounded background sized to the content.
func panel(gtx layout.Context, col color.NRGBA, content layout.Widget) layout.Dimensions {
	macro := op.Record(gtx.Ops)
	dims := layout.UniformInset(unit.Dp(12)).Layout(gtx, content)
	call := macro.Stop()

	size := image.Pt(gtx.Constraints.Max.X, dims.Size.Y)
	drawPanel(gtx, col, size)
	call.Add(gtx.Ops)
	return layout.Dimensions{Size: size}
}

// drawDot draws the status indicator.
func drawDot(gtx layout.Context, col color.NRGBA) layout.Dimensions {
	size := gtx.Dp(unit.Dp(10))
	circle := clip.Ellipse{Max: image.Pt(size, size)}
	paint.FillShape(gtx.Ops, col, circle.Op(gtx.Ops))
	return layout.Dimensions{Size: image.Pt(size, size)}
}

// spinnerSegments is the number of dots in the busy spinner.
const spinnerSegments = 12

// spinnerAngle returns the rotation of the spinner at t, one turn per second.
func spinnerAngle(t time.Time) float64 {
	return float64(t.UnixMilli()%1000) / 1000.0 * 2 * math.Pi
}

// drawSpinner draws a ring of fading dots, shown while waiting on a service.
func drawSpinner(gtx layout.Context, accent color.NRGBA, now time.Time) layout.Dimensions {
	size := gtx.Dp(unit.Dp(14))
	thickness := gtx.Dp(unit.Dp(2))
	if thickness < 2 {
		thickness = 2
	}

	angle := spinnerAngle(now)
	center := image.Pt(size/2, size/2)
	radius := size/2 - thickness/2
	dotRadius := thickness / 2

	for i := 0; i < spinnerSegments; i++ {
		a := angle + float64(i)*2*math.Pi/spinnerSegments
		x := center.X + int(float64(radius)*math.Cos(a))
		y := center.Y + int(float64(radius)*math.Sin(a))

		dot := clip.Ellipse{
			Min: image.Pt(x-dotRadius, y-dotRadius),
			Max: image.Pt(x+dotRadius, y+dotRadius),
		}
		col := accent
		col.A = uint8(255 - i*20)
		paint.FillShape(gtx.Ops, col, dot.Op(gtx.Ops))
	}

	return layout.Dimensions{Size: image.Pt(size, size)}
}

// drawRecording draws the timer and the level history while recording.
func drawRecording(gtx layout.Context, th *material.Theme, cfg Config, level audio.Level, history []float32) layout.Dimensions {
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			lbl := material.Label(th, unit.Sp(13), formatTimer(level))
			lbl.Color = cfg.TextDimColor
			lbl.Font.Weight = font.Bold
			return lbl.Layout(gtx)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		// Progress of the fixed-length clip
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return drawProgressBar(gtx, cfg, level.Fraction())
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			gtx.Constraints.Max.Y = gtx.Dp(unit.Dp(120))
			gtx.Constraints.Min.Y = gtx.Constraints.Max.Y
			return drawLevelBars(gtx, cfg, history)
		}),
	)
}

func drawProgressBar(gtx layout.Context, cfg Config, fraction float64) layout.Dimensions {
	width := gtx.Constraints.Max.X
	height := gtx.Dp(unit.Dp(6))
	drawPanel(gtx, cfg.PanelColor, image.Pt(width, height))

	if filled := int(fraction * float64(width)); filled > 0 {
		rect := clip.Rect{Max: image.Pt(filled, height)}
		paint.FillShape(gtx.Ops, cfg.ProgressColor, rect.Op())
	}
	return layout.Dimensions{Size: image.Pt(width, height)}
}

// drawLevelBars renders the RMS history as vertical bars around the centre line.
func drawLevelBars(gtx layout.Context, cfg Config, history []float32) layout.Dimensions {
	width := gtx.Constraints.Max.X
	height := gtx.Constraints.Max.Y
	drawPanel(gtx, cfg.PanelColor, image.Pt(width, height))

	centerY := height / 2
	centerLine := clip.Rect{
		Min: image.Pt(0, centerY),
		Max: image.Pt(width, centerY+1),
	}
	paint.FillShape(gtx.Ops, color.NRGBA{R: 60, G: 60, B: 65, A: 255}, centerLine.Op())

	slot := width / historySize
	gap := slot / 4
	for i, lvl := range history {
		half := int(lvl * float32(centerY) * 0.9)
		if half < 1 {
			half = 1
		}
		x := i * slot
		bar := clip.Rect{
			Min: image.Pt(x+gap, centerY-half),
			Max: image.Pt(x+slot-gap, centerY+half),
		}
		paint.FillShape(gtx.Ops, levelColor(cfg, lvl), bar.Op())
	}
	return layout.Dimensions{Size: image.Pt(width, height)}
}

// levelColor: green for normal, yellow for medium, red for high volume.
func levelColor(cfg Config, level float32) color.NRGBA {
	switch {
	case level > 0.7:
		return color.NRGBA{R: 255, G: 80, B: 80, A: 255}
	case level > 0.4:
		return color.NRGBA{R: 255, G: 180, B: 0, A: 255}
	default:
		return cfg.LevelColor
	}
}

// drawReport draws current conditions, outfit advice and the forecast chart.
func drawReport(gtx layout.Context, th *material.Theme, cfg Config, res *workflow.Result) layout.Dimensions {
	rep := res.Report

	label := func(size unit.Sp, text string, col color.NRGBA, weight font.Weight) layout.Widget {
		return func(gtx layout.Context) layout.Dimensions {
			lbl := material.Label(th, size, text)
			lbl.Color = col
			lbl.Font.Weight = weight
			return lbl.Layout(gtx)
		}
	}

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		// Current conditions
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return panel(gtx, cfg.PanelColor, func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
					layout.Rigid(label(unit.Sp(18), rep.Location, cfg.TextColor, font.Bold)),
					layout.Rigid(layout.Spacer{Height: unit.Dp(4)}.Layout),
					layout.Rigid(label(unit.Sp(32), formatTemp(rep.TempC, rep.TempF), cfg.TextColor, font.Medium)),
					layout.Rigid(label(unit.Sp(14), rep.Condition, cfg.TextColor, font.Normal)),
					layout.Rigid(layout.Spacer{Height: unit.Dp(4)}.Layout),
					layout.Rigid(label(unit.Sp(12), formatDetails(rep.Humidity, rep.WindKPH, rep.FeelsLikeC), cfg.TextDimColor, font.Normal)),
				)
			})
		}),

		layout.Rigid(layout.Spacer{Height: unit.Dp(10)}.Layout),

		// Outfit recommendation
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return panel(gtx, cfg.PanelColor, func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
					layout.Rigid(label(unit.Sp(15), string(res.Outfit.Category), cfg.SuccessColor, font.Bold)),
					layout.Rigid(layout.Spacer{Height: unit.Dp(4)}.Layout),
					layout.Rigid(label(unit.Sp(12), res.Outfit.Guidance, cfg.TextColor, font.Normal)),
				)
			})
		}),

		layout.Rigid(layout.Spacer{Height: unit.Dp(10)}.Layout),

		// 3-day forecast
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return drawChart(gtx, th, cfg, rep.Forecast)
		}),
	)
}

// drawCloseButton draws an X button.
func drawCloseButton(gtx layout.Context, btn *widget.Clickable, col color.NRGBA) layout.Dimensions {
	return btn.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		size := gtx.Dp(unit.Dp(24))

		// Hover effect
		if btn.Hovered() {
			col = color.NRGBA{R: 255, G: 100, B: 100, A: 255}
		}

		s := float32(size)
		margin := s * 0.25
		for _, line := range [2][2]f32.Point{
			{f32.Pt(margin, margin), f32.Pt(s-margin, s-margin)},
			{f32.Pt(s-margin, margin), f32.Pt(margin, s-margin)},
		} {
			var path clip.Path
			path.Begin(gtx.Ops)
			path.MoveTo(line[0])
			path.LineTo(line[1])
			paint.FillShape(gtx.Ops, col, clip.Stroke{
				Path:  path.End(),
				Width: float32(gtx.Dp(unit.Dp(2))),
			}.Op())
		}

		return layout.Dimensions{Size: image.Pt(size, size)}
	})
}

func formatTimer(l audio.Level) string {
	return fmt.Sprintf("%d:%02d / %d:%02d",
		int(l.Elapsed.Minutes()), int(l.Elapsed.Seconds())%60,
		int(l.Total.Minutes()), int(l.Total.Seconds())%60)
}

func formatTemp(c, f float64) string {
	return fmt.Sprintf("%.1f°C / %.1f°F", c, f)
}

func formatDetails(humidity int, windKPH, feelsLikeC float64) string {
	return fmt.Sprintf("Humidity %d%%   Wind %.1f km/h   Feels like %.1f°C", humidity, windKPH, feelsLikeC)
}
