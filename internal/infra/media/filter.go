package media

import (
	"fmt"
	"strconv"
	"strings"
)

// fadeSeconds is the window over which each overlay fades in and out.
const fadeSeconds = 0.3

// escapeDrawtext escapes the metacharacters of ffmpeg's drawtext filter
// syntax. Titles are user input; an unescaped quote or colon corrupts the
// whole filtergraph expression.
func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, `'`, `'\\\''`)
	s = strings.ReplaceAll(s, `:`, `\:`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `[`, `\[`)
	s = strings.ReplaceAll(s, `]`, `\]`)
	return s
}

func ffFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// overlayAlpha fades the overlay in over fadeSeconds, holds, and fades it
// out so it is gone by duration.
func overlayAlpha(duration float64) string {
	d := ffFloat(duration)
	fade := ffFloat(fadeSeconds)
	out := ffFloat(duration - fadeSeconds)
	return fmt.Sprintf("if(lt(t,%s),t/%s,if(gt(t,%s),(%s-t)/%s,1))", fade, fade, out, d, fade)
}

// overlayFilter composes the two timed drawtext overlays: the big item
// number and the smaller title caption below it.
func (p *Processor) overlayFilter(ordinal int, title string, duration float64) string {
	safeTitle := escapeDrawtext(title)
	enable := fmt.Sprintf("between(t,0,%s)", ffFloat(duration))
	alpha := overlayAlpha(duration)

	var b strings.Builder
	fmt.Fprintf(&b,
		"drawtext=fontfile=%s:text='#%d':fontsize=120:fontcolor=white@0.9:"+
			"x=(w-text_w)/2:y=h*0.15:borderw=4:bordercolor=black@0.8:"+
			"enable='%s':alpha='%s',",
		p.video.FontBold, ordinal+1, enable, alpha)
	fmt.Fprintf(&b,
		"drawtext=fontfile=%s:text='%s':fontsize=60:fontcolor=white@0.9:"+
			"x=(w-text_w)/2:y=h*0.25:borderw=3:bordercolor=black@0.8:"+
			"enable='%s':alpha='%s'",
		p.video.FontRegular, safeTitle, enable, alpha)
	return b.String()
}

// filterComplex letterboxes to the target resolution, normalizes the frame
// rate, then applies the overlays.
func (p *Processor) filterComplex(ordinal int, title string, duration float64) string {
	return fmt.Sprintf(
		"[0:v]scale=%d:%d:force_original_aspect_ratio=decrease,"+
			"pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,fps=%d,%s[v]",
		p.video.Width, p.video.Height,
		p.video.Width, p.video.Height,
		p.video.FrameRate,
		p.overlayFilter(ordinal, title, duration))
}
