package infra

import (
	"fmt"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner.
func PrintBanner(cfg *Config) {
	color := ColorCyan
	feed := "DISABLED"
	if cfg.Feed.ListenAddr != "" {
		color = ColorGreen
		feed = cfg.Feed.ListenAddr
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#              AuraVerse Settlement Engine                #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   VERSION: %-36s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Printf("%s#   FEED:    %-36s #%s\n", color, feed, ColorReset)
	fmt.Printf("%s#   FEE:     %-4d bps                                     #%s\n", color, cfg.Engine.PlatformFeeBps, ColorReset)
	fmt.Printf("%s#   ROYALTY: %-4d bps                                     #%s\n", color, cfg.Engine.RoyaltyBps, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
