package mapview

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// svgScale supersamples the document. The vector renderer writes integer
// coordinates and stroke widths, so every length is multiplied by svgScale
// and the viewBox grows to match.
const svgScale = 4

// Legend and tooltip styling, in frame pixels.
const (
	legendSteps     = 50
	legendTitleSize = 12.0
	legendLabelSize = 10.0
	tooltipX        = 10.0
	tooltipY        = 10.0
	tooltipPadding  = 8.0
	tooltipLine     = 16.0
	tooltipRadius   = 4.0
	tooltipFontSize = 12.0
)

var (
	svgBackground = drawing.ColorFromHex("f5f5f5")
	tooltipFill   = drawing.Color{A: 204}
)

// SVGSurface renders each frame to an SVG document and keeps the latest one.
type SVGSurface struct {
	mu     sync.RWMutex
	latest []byte
	frame  Frame
}

// NewSVGSurface creates an empty SVG surface.
func NewSVGSurface() *SVGSurface {
	return &SVGSurface{}
}

func (s *SVGSurface) Draw(_ context.Context, f Frame) error {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, f); err != nil {
		return err
	}
	s.mu.Lock()
	s.latest = buf.Bytes()
	s.frame = f
	s.mu.Unlock()
	return nil
}

// Latest returns the most recently rendered document and its frame.
func (s *SVGSurface) Latest() ([]byte, Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, Frame{}, false
	}
	return s.latest, s.frame, true
}

// WriteSVG renders a frame as a standalone SVG document. The zoom transform
// is applied to the map geometry; the legend and tooltip stay in screen
// space.
func WriteSVG(w io.Writer, f Frame) error {
	font, err := chart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	r, err := chart.SVG(px(f.Width), px(f.Height))
	if err != nil {
		return fmt.Errorf("create svg renderer: %w", err)
	}
	// At 72 dpi a font point is one unit of the document.
	r.SetDPI(72)
	r.SetFont(font)

	drawRect(r, 0, 0, f.Width, f.Height)
	r.SetFillColor(svgBackground)
	r.Fill()

	drawCountries(r, f)
	drawMarkers(r, f)
	drawLegend(r, f.Legend)
	if f.Tooltip != nil {
		drawTooltip(r, *f.Tooltip)
	}

	if err := r.Save(w); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func drawCountries(r chart.Renderer, f Frame) {
	t := f.Transform
	for _, c := range f.Countries {
		if len(c.Rings) == 0 {
			continue
		}
		r.ResetStyle()
		for _, ring := range c.Rings {
			for i, pt := range ring {
				x, y := t.Apply(pt[0], pt[1])
				if i == 0 {
					r.MoveTo(px(x), px(y))
				} else {
					r.LineTo(px(x), px(y))
				}
			}
			r.Close()
		}
		r.SetFillColor(drawing.ParseColor(c.Fill))
		r.SetStrokeColor(drawing.ParseColor(c.Stroke))
		r.SetStrokeWidth(scaled(c.StrokeWidth * t.K))
		r.FillStroke()
	}
}

func drawMarkers(r chart.Renderer, f Frame) {
	t := f.Transform
	for _, m := range f.Markers {
		r.ResetStyle()
		r.SetFillColor(drawing.ParseColor(m.Fill))
		r.SetStrokeColor(drawing.ParseColor(m.Stroke))
		r.SetStrokeWidth(scaled(m.StrokeWidth * t.K))
		x, y := t.Apply(m.CX, m.CY)
		r.Circle(scaled(m.R*t.K), px(x), px(y))
	}
}

// drawLegend approximates the gradient bar with narrow stepped fills.
func drawLegend(r chart.Renderer, l Legend) {
	if l.Width <= 0 || len(l.Stops) == 0 {
		return
	}

	step := l.Width / legendSteps
	for i := range legendSteps {
		r.ResetStyle()
		drawRect(r, l.X+float64(i)*step, l.Y, step, l.Height)
		r.SetFillColor(gradientAt(l.Stops, (float64(i)+0.5)/legendSteps))
		r.Fill()
	}

	r.ResetStyle()
	drawRect(r, l.X, l.Y, l.Width, l.Height)
	r.SetStrokeColor(drawing.ColorBlack)
	r.SetStrokeWidth(scaled(0.5))
	r.Stroke()

	for _, tick := range l.Ticks {
		x := l.X + tick.X
		r.ResetStyle()
		r.MoveTo(px(x), px(l.Y+l.Height))
		r.LineTo(px(x), px(l.Y+l.Height+5))
		r.SetStrokeColor(drawing.ColorBlack)
		r.SetStrokeWidth(scaled(1))
		r.Stroke()

		r.ResetStyle()
		r.SetFontSize(scaled(legendLabelSize))
		r.SetFontColor(drawing.ColorBlack)
		width := r.MeasureText(tick.Label).Width()
		r.Text(html.EscapeString(tick.Label), px(x)-width/2, px(l.Y+l.Height+20))
	}

	r.ResetStyle()
	r.SetFontSize(scaled(legendTitleSize))
	r.SetFontColor(drawing.ColorBlack)
	r.Text(html.EscapeString(l.Title), px(l.X), px(l.Y-5))
}

func drawTooltip(r chart.Renderer, t Tooltip) {
	lines := t.Lines()

	r.ResetStyle()
	r.SetFontSize(scaled(tooltipFontSize))
	width := 0
	for _, line := range lines {
		width = max(width, r.MeasureText(line).Width())
	}
	w := float64(width)/svgScale + 2*tooltipPadding
	h := float64(len(lines))*tooltipLine + 2*tooltipPadding

	r.ResetStyle()
	drawRoundedRect(r, tooltipX, tooltipY, w, h, tooltipRadius)
	r.SetFillColor(tooltipFill)
	r.Fill()

	r.ResetStyle()
	r.SetFontSize(scaled(tooltipFontSize))
	r.SetFontColor(drawing.ColorWhite)
	for i, line := range lines {
		y := tooltipY + tooltipPadding + float64(i+1)*tooltipLine - 4
		r.Text(html.EscapeString(line), px(tooltipX+tooltipPadding), px(y))
	}
}

// gradientAt linearly interpolates the stops in RGB at offset.
func gradientAt(stops []GradientStop, offset float64) drawing.Color {
	lo, hi := stops[0], stops[len(stops)-1]
	for i := 1; i < len(stops); i++ {
		if offset <= stops[i].Offset {
			lo, hi = stops[i-1], stops[i]
			break
		}
	}
	a, errA := colorful.Hex(lo.Color)
	b, errB := colorful.Hex(hi.Color)
	if errA != nil || errB != nil {
		return drawing.ParseColor(lo.Color)
	}
	frac := 0.0
	if span := hi.Offset - lo.Offset; span > 0 {
		frac = math.Max(0, math.Min(1, (offset-lo.Offset)/span))
	}
	return drawing.ColorFromHex(a.BlendRgb(b, frac).Clamped().Hex())
}

func drawRect(r chart.Renderer, x, y, w, h float64) {
	r.MoveTo(px(x), px(y))
	r.LineTo(px(x+w), px(y))
	r.LineTo(px(x+w), px(y+h))
	r.LineTo(px(x), px(y+h))
	r.Close()
}

func drawRoundedRect(r chart.Renderer, x, y, w, h, radius float64) {
	r.MoveTo(px(x+radius), px(y))
	r.LineTo(px(x+w-radius), px(y))
	r.QuadCurveTo(px(x+w), px(y), px(x+w), px(y+radius))
	r.LineTo(px(x+w), px(y+h-radius))
	r.QuadCurveTo(px(x+w), px(y+h), px(x+w-radius), px(y+h))
	r.LineTo(px(x+radius), px(y+h))
	r.QuadCurveTo(px(x), px(y+h), px(x), px(y+h-radius))
	r.LineTo(px(x), px(y+radius))
	r.QuadCurveTo(px(x), px(y), px(x+radius), px(y))
	r.Close()
}

// px converts a frame coordinate to a document coordinate.
func px(v float64) int {
	return int(math.Round(v * svgScale))
}

// scaled converts a frame length to a document length, rounded so the
// renderer's integer truncation keeps the nearest value.
func scaled(v float64) float64 {
	return math.Round(v * svgScale)
}
