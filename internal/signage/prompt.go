package signage

import (
	"fmt"
	"strconv"
	"strings"
)

// BoardConfig carries one submission of the signboard form. ShopName is
// expected to be sanitized before the config reaches prompt composition.
type BoardConfig struct {
	ShopName      string
	PlaceType     string
	DesignStyle   string
	ColorScheme   string
	BoardMaterial string
	TextMaterial  string
	WidthMeters   float64
	HeightMeters  float64
}

// ComposePrompt renders the fixed generation prompt for a signboard config.
// The template never branches on field values; only the substituted text
// differs between submissions. The shop name appears verbatim, quoted.
func ComposePrompt(cfg BoardConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A realistic street view of a %s storefront signboard. ", cfg.PlaceType)
	fmt.Fprintf(&b, "The signboard says %q in clear, professional 3D typography. ", cfg.ShopName)
	fmt.Fprintf(&b, "The storefront dimensions are roughly %sm wide x %sm high. ",
		formatMeters(cfg.WidthMeters), formatMeters(cfg.HeightMeters))
	fmt.Fprintf(&b, "Board material: %s. ", cfg.BoardMaterial)
	fmt.Fprintf(&b, "Lettering material: %s. ", cfg.TextMaterial)
	fmt.Fprintf(&b, "Design style: %s. ", cfg.DesignStyle)
	fmt.Fprintf(&b, "Color scheme: %s. ", cfg.ColorScheme)
	b.WriteString("Context: Mounted on a modern building facade, outdoors, sunny day. ")
	b.WriteString("Quality: 8k resolution, architectural photography, photorealistic, cinematic lighting, sharp focus.")
	return b.String()
}

// formatMeters renders a dimension without trailing zeros, so 4.5 stays
// "4.5" and 3.0 becomes "3".
func formatMeters(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
