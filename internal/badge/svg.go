package badge

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"strconv"
	"text/template"
	"time"
	"unicode/utf8"
)

// Badge colors by emission level.
const (
	colorGreen  = "#4c1"
	colorYellow = "#dfb317"
	colorRed    = "#e05d44"
	colorGray   = "#9f9f9f"
)

const labelText = "CO₂"

// Data describes one badge to render. CO2Kg == nil means no measurement
// exists yet and renders the gray "no data" badge.
type Data struct {
	Org         string
	Repo        string
	CO2Kg       *float64
	LastUpdated time.Time
}

// Color maps the emission level to the badge color: under 0.1 kg is
// green, up to 0.5 kg yellow, above that red.
func (d Data) Color() string {
	if d.CO2Kg == nil {
		return colorGray
	}
	switch {
	case *d.CO2Kg < 0.1:
		return colorGreen
	case *d.CO2Kg <= 0.5:
		return colorYellow
	default:
		return colorRed
	}
}

// DisplayText is the value half of the badge.
func (d Data) DisplayText() string {
	if d.CO2Kg == nil {
		return "no data"
	}
	return strconv.FormatFloat(*d.CO2Kg, 'f', 3, 64) + " kg"
}

// ETag derives a stable cache validator from the badge's inputs.
func (d Data) ETag() string {
	var content string
	if d.CO2Kg == nil || d.LastUpdated.IsZero() {
		content = fmt.Sprintf("%s:%s:no-data", d.Org, d.Repo)
	} else {
		content = fmt.Sprintf("%s:%s:%v:%s", d.Org, d.Repo, *d.CO2Kg, d.LastUpdated.Format(time.RFC3339Nano))
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(content)))
}

// Renderer produces shields-style flat SVG badges.
type Renderer struct {
	tpl *template.Template
}

func NewRenderer() *Renderer {
	return &Renderer{tpl: template.Must(template.New("badge").Parse(badgeTemplate))}
}

// Render returns the SVG document for the badge. Widths approximate
// 7px per character plus padding, matching the original badge layout.
func (r *Renderer) Render(d Data) (string, error) {
	value := d.DisplayText()
	labelWidth := utf8.RuneCountInString(labelText)*7 + 12
	valueWidth := utf8.RuneCountInString(value)*7 + 12

	view := struct {
		Title       string
		Label       string
		Value       string
		Color       string
		LabelWidth  int
		ValueWidth  int
		TotalWidth  int
		LabelCenter float64
		ValueCenter float64
	}{
		Title:       fmt.Sprintf("%s emissions for %s/%s", labelText, d.Org, d.Repo),
		Label:       labelText,
		Value:       value,
		Color:       d.Color(),
		LabelWidth:  labelWidth,
		ValueWidth:  valueWidth,
		TotalWidth:  labelWidth + valueWidth,
		LabelCenter: float64(labelWidth) / 2,
		ValueCenter: float64(labelWidth) + float64(valueWidth)/2,
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("badge: render: %w", err)
	}
	return buf.String(), nil
}

const badgeTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="{{.TotalWidth}}" height="20" role="img" aria-label="{{.Label}}: {{.Value}}">
<title>{{.Title}}</title>
<linearGradient id="s" x2="0" y2="100%">
<stop offset="0" stop-color="#bbb" stop-opacity=".1"/>
<stop offset="1" stop-opacity=".1"/>
</linearGradient>
<clipPath id="r"><rect width="{{.TotalWidth}}" height="20" rx="3" fill="#fff"/></clipPath>
<g clip-path="url(#r)">
<rect width="{{.LabelWidth}}" height="20" fill="#555"/>
<rect x="{{.LabelWidth}}" width="{{.ValueWidth}}" height="20" fill="{{.Color}}"/>
<rect width="{{.TotalWidth}}" height="20" fill="url(#s)"/>
</g>
<g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" font-size="11">
<text x="{{.LabelCenter}}" y="15" fill="#010101" fill-opacity=".3">{{.Label}}</text>
<text x="{{.LabelCenter}}" y="14">{{.Label}}</text>
<text x="{{.ValueCenter}}" y="15" fill="#010101" fill-opacity=".3">{{.Value}}</text>
<text x="{{.ValueCenter}}" y="14">{{.Value}}</text>
</g>
</svg>`
