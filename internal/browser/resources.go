// CLAUDE:SUMMARY Blocks configured resource types (fonts, media) on capture tabs; never blocks what screenshots need.
package browser

import (
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockedTypes maps config names to CDP resource types. Images and
// stylesheets are dropped: a capture without them is not the page.
func blockedTypes(names []string, log *slog.Logger) map[proto.NetworkResourceType]bool {
	out := make(map[proto.NetworkResourceType]bool, len(names))
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "fonts", "font":
			out[proto.NetworkResourceTypeFont] = true
		case "media":
			out[proto.NetworkResourceTypeMedia] = true
		case "websockets", "websocket":
			out[proto.NetworkResourceTypeWebSocket] = true
		case "images", "image", "stylesheets", "stylesheet":
			log.Warn("browser: resource type cannot be blocked during capture", "type", n)
		case "":
		default:
			log.Warn("browser: unknown resource type", "type", n)
		}
	}
	return out
}

// blockResources fails requests of the given types. The returned router is
// stopped when the tab closes.
func blockResources(page *rod.Page, types map[proto.NetworkResourceType]bool) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if types[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
