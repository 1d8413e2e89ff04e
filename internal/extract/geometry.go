package extract

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/unearth/internal/extract/adapters"
)

// RectAttr carries the rendered size stamped by the page serializer as "W,H"
const RectAttr = "data-unearth-rect"

var stylePx = regexp.MustCompile(`(?i)(?:^|;)\s*(width|height)\s*:\s*([0-9.]+)px`)

// OnScreenArea returns the element's rendered area in px². Sources in
// order: the serializer's rect, width/height attributes, inline style.
// Unknown geometry yields 0.
func OnScreenArea(n *html.Node) int {
	if w, h, ok := rectFromAttr(adapters.Attr(n, RectAttr)); ok {
		return area(w, h)
	}

	w, wok := parsePx(adapters.Attr(n, "width"))
	h, hok := parsePx(adapters.Attr(n, "height"))

	if !wok || !hok {
		sw, sh := styleSize(adapters.Attr(n, "style"))
		if !wok && sw > 0 {
			w, wok = sw, true
		}
		if !hok && sh > 0 {
			h, hok = sh, true
		}
	}

	if !wok || !hok {
		return 0
	}
	return area(w, h)
}

func rectFromAttr(v string) (float64, float64, bool) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	h, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return w, h, true
}

func parsePx(v string) (float64, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(v)), "px")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}

func styleSize(style string) (w, h float64) {
	for _, m := range stylePx.FindAllStringSubmatch(style, -1) {
		f, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		if strings.EqualFold(m[1], "width") {
			w = f
		} else {
			h = f
		}
	}
	return w, h
}

func area(w, h float64) int {
	if w <= 0 || h <= 0 {
		return 0
	}
	return int(w * h)
}
